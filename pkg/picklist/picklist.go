// Package picklist maps free-text multi-value fields onto the canonical
// label set that the remote store defines for a picklist field.
package picklist

import (
	"regexp"
	"strings"

	"github.com/agentstation/casesync/pkg/constants"
)

var leadingWord = regexp.MustCompile(`^[\p{L}\p{N}_]+`)

// Token returns the leading word of value, or "Unknown" when there is none.
func Token(value string) string {
	if tok := leadingWord.FindString(value); tok != "" {
		return tok
	}
	return constants.UnknownLabel
}

// Map maps each free-text value to the first canonical label containing its
// leading word (case-sensitive). Output order follows input; duplicates are
// kept. When nothing matches at all the result is ["Unknown"].
func Map(values, labels []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		tok := Token(v)
		for _, label := range labels {
			if strings.Contains(label, tok) {
				out = append(out, label)
				break
			}
		}
	}
	if len(out) == 0 {
		return []string{constants.UnknownLabel}
	}
	return out
}

// Join serializes mapped labels for persistence.
func Join(labels []string) string {
	return strings.Join(labels, constants.PicklistDelimiter)
}

// Values extracts free-text values from a raw field value: a string list,
// a generic list, or a delimited string.
func Values(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		parts := strings.Split(v, constants.PicklistDelimiter)
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

// Normalize maps a raw field value onto labels and joins the result. It
// returns false when the raw value holds no free text.
func Normalize(raw any, labels []string) (string, bool) {
	values := Values(raw)
	if len(values) == 0 {
		return "", false
	}
	return Join(Map(values, labels)), true
}
