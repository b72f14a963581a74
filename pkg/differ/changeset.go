package differ

import "github.com/agentstation/casesync/pkg/records"

// FieldChange is one differing field.
type FieldChange struct {
	Field string
	Old   any
	New   any
	// WasEmpty is set when the existing value was nil or empty.
	WasEmpty bool
}

// NullToValue reports whether the change fills a previously empty field.
func (c FieldChange) NullToValue() bool {
	return c.WasEmpty && !records.IsEmpty(c.New)
}

// Changeset is the ephemeral result of a diff, sorted by field name.
type Changeset struct {
	Changes []FieldChange
}

// IsEmpty returns true if the changeset contains no changes.
func (c *Changeset) IsEmpty() bool {
	return c == nil || len(c.Changes) == 0
}

// Len returns the number of changed fields.
func (c *Changeset) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Changes)
}

// Get returns the change for field, if present.
func (c *Changeset) Get(field string) (FieldChange, bool) {
	if c == nil {
		return FieldChange{}, false
	}
	for _, ch := range c.Changes {
		if ch.Field == field {
			return ch, true
		}
	}
	return FieldChange{}, false
}

// Fields returns the changed field names in order.
func (c *Changeset) Fields() []string {
	names := make([]string, 0, c.Len())
	if c == nil {
		return names
	}
	for _, ch := range c.Changes {
		names = append(names, ch.Field)
	}
	return names
}

// IsNoop reports whether the changeset is non-empty and its only entry is
// the touch field.
func (c *Changeset) IsNoop(touch string) bool {
	return c.Len() == 1 && touch != "" && c.Changes[0].Field == touch
}

// Reportable reports whether the changeset is worth a report entry.
func (c *Changeset) Reportable(touch string) bool {
	return !c.IsEmpty() && !c.IsNoop(touch)
}

// NullToValue returns the fields that were empty remotely and now have a value.
func (c *Changeset) NullToValue() records.Fields {
	out := records.Fields{}
	if c == nil {
		return out
	}
	for _, ch := range c.Changes {
		if ch.NullToValue() {
			out[ch.Field] = ch.New
		}
	}
	return out
}
