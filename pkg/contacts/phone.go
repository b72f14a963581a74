package contacts

import (
	"strings"
	"unicode"
)

// NormalizePhone strips every non-digit from a US phone number and checks
// its length: 7 or 10 digits, or 11 digits starting with 1.
func NormalizePhone(number string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)

	switch len(digits) {
	case 7, 10:
		return digits, true
	case 11:
		if strings.HasPrefix(digits, "1") {
			return digits, true
		}
	}
	return "", false
}
