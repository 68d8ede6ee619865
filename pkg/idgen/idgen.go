// Package idgen builds human readable sequential identifiers such as CPU001 or ORD012.
package idgen

import (
	"fmt"
	"strconv"
	"strings"
)

// Width is the minimum number of digits in a generated suffix.
const Width = 3

// Next returns prefix followed by one more than the highest numeric suffix found
// among existing ids that carry the same prefix. Ids whose remainder is not purely
// numeric are ignored, so CASE001 never counts towards a C prefix.
func Next(prefix string, existing []string) string {
	highest := 0
	for _, id := range existing {
		n, ok := Sequence(prefix, id)
		if ok && n > highest {
			highest = n
		}
	}
	return Format(prefix, highest+1)
}

// Sequence extracts the numeric suffix of id when it starts with prefix.
func Sequence(prefix, id string) (int, bool) {
	id = strings.ToUpper(strings.TrimSpace(id))
	prefix = strings.ToUpper(prefix)
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	rest := id[len(prefix):]
	if rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Format renders prefix plus a zero padded number.
func Format(prefix string, n int) string {
	return fmt.Sprintf("%s%0*d", strings.ToUpper(prefix), Width, n)
}
