package validators

import (
	"strings"
	"unicode"
)

// CleanText trims input, folds whitespace runs into one space, drops control
// characters and cuts the result to maxRunes (0 means no limit).
func CleanText(input string, maxRunes int) string {
	var b strings.Builder
	b.Grow(len(input))
	runes, pendingSpace := 0, false
	for _, r := range input {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
			continue
		case unicode.IsControl(r):
			continue
		}
		if maxRunes > 0 && runes+boolInt(pendingSpace)+1 > maxRunes {
			break
		}
		if pendingSpace {
			b.WriteByte(' ')
			runes++
			pendingSpace = false
		}
		b.WriteRune(r)
		runes++
	}
	return b.String()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
