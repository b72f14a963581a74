package differ

import (
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/agentstation/casesync/pkg/constants"
)

// Rule decides whether two values of a field are equivalent.
type Rule interface {
	Equal(existing, incoming any) bool
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc func(existing, incoming any) bool

// Equal calls f.
func (f RuleFunc) Equal(existing, incoming any) bool {
	return f(existing, incoming)
}

// dateLayouts are tried in order before falling back to cast.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	time.RFC3339,
}

// DateWindow treats two dates as equal when they are at most window apart.
// Values that do not parse as dates are compared strictly.
func DateWindow(window time.Duration) Rule {
	return RuleFunc(func(existing, incoming any) bool {
		a, okA := ParseDate(existing)
		b, okB := ParseDate(incoming)
		if !okA || !okB {
			return Equal(existing, incoming)
		}
		delta := a.Sub(b)
		if delta < 0 {
			delta = -delta
		}
		return delta <= window
	})
}

// BirthdateWindow is the default tolerance for birthdate drift.
func BirthdateWindow() Rule {
	return DateWindow(constants.BirthdateWindow)
}

// ParseDate parses a listing date value.
func ParseDate(v any) (time.Time, bool) {
	switch vv := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return vv, !vv.IsZero()
	case string:
		s := strings.TrimSpace(vv)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		t, err := cast.ToTimeE(s)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
