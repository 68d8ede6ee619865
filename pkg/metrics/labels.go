package metrics

import "strings"

// labelValue keeps blank label values from collapsing into an empty series.
func labelValue(v string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return "unknown"
}
