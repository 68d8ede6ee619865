package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
)

// DateLayout is the calendar date format accepted on the wire.
const DateLayout = "2006-01-02"

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func badQuery(key, msg string, extra map[string]any) *pkgerrors.Error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, key+": "+msg).WithDetails(details)
}

// ParseQueryInt reads an optional integer bounded to [lo, hi].
func ParseQueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badQuery(key, "must be a whole number", nil)
	}
	if n < lo || n > hi {
		return 0, badQuery(key, "out of range", map[string]any{"min": lo, "max": hi})
	}
	return n, nil
}

// ParseQueryDate reads an optional YYYY-MM-DD value as UTC midnight. A missing
// value yields the zero time.
func ParseQueryDate(r *http.Request, key string) (time.Time, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return time.Time{}, nil
	}
	day, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, badQuery(key, "must be a YYYY-MM-DD date", nil)
	}
	return day, nil
}
