package enums

import "fmt"

// ActivityAction classifies an activity log entry.
type ActivityAction string

const (
	ActivityActionAddition    ActivityAction = "Addition"
	ActivityActionUpdate      ActivityAction = "Update"
	ActivityActionDeletion    ActivityAction = "Deletion"
	ActivityActionCreateOrder ActivityAction = "Create Order"
	ActivityActionUpdateOrder ActivityAction = "Update Order"
	ActivityActionDeleted     ActivityAction = "Deleted"
)

var validActivityActions = []ActivityAction{
	ActivityActionAddition,
	ActivityActionUpdate,
	ActivityActionDeletion,
	ActivityActionCreateOrder,
	ActivityActionUpdateOrder,
	ActivityActionDeleted,
}

// String implements fmt.Stringer.
func (a ActivityAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActivityAction.
func (a ActivityAction) IsValid() bool {
	for _, candidate := range validActivityActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityAction converts raw input into an ActivityAction.
func ParseActivityAction(value string) (ActivityAction, error) {
	for _, candidate := range validActivityActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity action %q", value)
}
