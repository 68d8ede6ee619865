package orders

import (
	"fmt"

	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
)

var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusCompleted, enums.OrderStatusCancelled},
	enums.OrderStatusCompleted: {enums.OrderStatusPending},
}

// CanTransition reports whether an order may move from one status to another.
// Staying in the same non-terminal status is always allowed.
func CanTransition(from, to enums.OrderStatus) bool {
	if from == enums.OrderStatusCancelled {
		return false
	}
	if from == to {
		return true
	}
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func transitionError(orderID string, from, to enums.OrderStatus) error {
	if from == enums.OrderStatusCancelled {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order %s is cancelled and can no longer change", orderID)).
			WithDetails(map[string]any{"order_id": orderID, "status": from})
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order %s cannot move from %s to %s", orderID, from, to)).
		WithDetails(map[string]any{"order_id": orderID, "from": from, "to": to})
}
