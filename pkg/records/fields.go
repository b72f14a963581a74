package records

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Fields is a flat field-name to value mapping as exchanged with the remote store.
// A missing key and a nil value both mean "no value".
type Fields map[string]any

// Clone returns a shallow copy of the fields. Slice values are copied too.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		switch vv := v.(type) {
		case []string:
			out[k] = append([]string(nil), vv...)
		case []any:
			out[k] = append([]any(nil), vv...)
		default:
			out[k] = v
		}
	}
	return out
}

// Get returns the value stored under name, or nil.
func (f Fields) Get(name string) any {
	if f == nil {
		return nil
	}
	return f[name]
}

// String returns the canonical string form of the named field.
func (f Fields) String(name string) string {
	return Canonical(f.Get(name))
}

// Merge copies every entry of other into f, overwriting existing keys.
func (f Fields) Merge(other Fields) {
	for k, v := range other {
		f[k] = v
	}
}

// Names returns the field names in sorted order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// IsEmpty reports whether v counts as an empty value: nil, the empty
// string, or an empty list.
func IsEmpty(v any) bool {
	switch vv := v.(type) {
	case nil:
		return true
	case string:
		return vv == ""
	case []string:
		return len(vv) == 0
	case []any:
		return len(vv) == 0
	case []byte:
		return len(vv) == 0
	}
	return false
}

// Canonical renders a field value as a string so that values decoded from
// different wire formats compare equal (float64(3) and int 3 both become "3").
// Empty values render as "".
func Canonical(v any) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case []string:
		return strings.Join(vv, ";")
	case []any:
		parts := make([]string, 0, len(vv))
		for _, item := range vv {
			parts = append(parts, Canonical(item))
		}
		return strings.Join(parts, ";")
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
