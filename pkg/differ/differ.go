// Package differ compares flat field mappings and produces change sets with
// noise suppression: excluded volatile fields, tolerance rules such as a
// birthdate window, and no-op classification of bookkeeping-only changes.
package differ

import (
	"sort"

	"github.com/agentstation/casesync/pkg/records"
)

// Differ compares an existing remote record with incoming scraped fields.
// It has no side effects; the same inputs always give the same Changeset.
type Differ struct {
	exclusions map[string]struct{}
	tolerances map[string]Rule
	touch      string
}

// New creates a Differ.
func New(opts ...Option) *Differ {
	d := &Differ{
		exclusions: make(map[string]struct{}),
		tolerances: make(map[string]Rule),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ForSchema creates a Differ configured from a record schema: its excluded
// fields, its touch field, and a date window on its birthdate field.
func ForSchema(schema records.Schema, window Rule) *Differ {
	opts := []Option{
		WithExclusions(schema.Excluded...),
		WithTouchField(schema.TouchField),
	}
	if schema.BirthdateField != "" {
		opts = append(opts, WithTolerance(schema.BirthdateField, window))
	}
	return New(opts...)
}

// TouchField returns the configured bookkeeping field.
func (d *Differ) TouchField() string {
	return d.touch
}

// Diff iterates the fields of incoming and reports every one that differs
// from existing. A field missing from existing counts as empty.
func (d *Differ) Diff(existing, incoming records.Fields) *Changeset {
	cs := &Changeset{Changes: []FieldChange{}}

	for field, newValue := range incoming {
		if _, skip := d.exclusions[field]; skip {
			continue
		}
		oldValue := existing.Get(field)

		if rule, ok := d.tolerances[field]; ok {
			if rule.Equal(oldValue, newValue) {
				continue
			}
		} else if Equal(oldValue, newValue) {
			continue
		}

		cs.Changes = append(cs.Changes, FieldChange{
			Field:    field,
			Old:      oldValue,
			New:      newValue,
			WasEmpty: records.IsEmpty(oldValue),
		})
	}

	sort.Slice(cs.Changes, func(i, j int) bool {
		return cs.Changes[i].Field < cs.Changes[j].Field
	})
	return cs
}

// IsNoop reports whether cs only touches the configured bookkeeping field.
func (d *Differ) IsNoop(cs *Changeset) bool {
	return cs.IsNoop(d.touch)
}

// Equal compares two field values by canonical string form. Empty values
// (nil, "") are equal to each other.
func Equal(a, b any) bool {
	return records.Canonical(a) == records.Canonical(b)
}
