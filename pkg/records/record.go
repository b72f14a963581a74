// Package records defines the entities exchanged between a source collector
// and the remote store: persons, groups, contacts and attachments.
//
// Every record splits its fields into two groups. Constant fields are seeded
// at construction and never change or take part in diffing. Variable fields
// are mutable and are what gets compared against the remote copy.
package records

import "fmt"

// Kind identifies the type of a record.
type Kind string

const (
	// KindPerson is a single listed person (a child profile).
	KindPerson Kind = "person"
	// KindGroup is a grouped-family listing owning person members.
	KindGroup Kind = "group"
	// KindContact is a caseworker or guardian.
	KindContact Kind = "contact"
	// KindAttachment is a binary file owned by a person or group.
	KindAttachment Kind = "attachment"
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// ParseKind parses a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindPerson, KindGroup, KindContact, KindAttachment:
		return k, nil
	}
	return "", fmt.Errorf("unknown record kind %q", s)
}

// Record is the common core of persons, groups and contacts.
type Record struct {
	kind      Kind
	table     string
	constants Fields
	variables Fields
	id        string
}

// NewRecord creates a record of the given kind stored in table. The
// constants are copied; later changes to the argument do not leak in.
func NewRecord(kind Kind, table string, constants Fields) *Record {
	c := Fields{}
	if constants != nil {
		c = constants.Clone()
	}
	return &Record{
		kind:      kind,
		table:     table,
		constants: c,
		variables: Fields{},
	}
}

// Kind returns the record kind.
func (r *Record) Kind() Kind { return r.kind }

// Table returns the remote table name.
func (r *Record) Table() string { return r.table }

// ID returns the remote identifier, empty until the record exists remotely.
func (r *Record) ID() string { return r.id }

// SetID records the remote identifier.
func (r *Record) SetID(id string) { r.id = id }

// Exists reports whether the record is known to exist remotely.
func (r *Record) Exists() bool { return r.id != "" }

// IsConstant reports whether name is one of the record's constant fields.
func (r *Record) IsConstant(name string) bool {
	_, ok := r.constants[name]
	return ok
}

// Set assigns a variable field. Setting a constant field name is a no-op
// and reports false.
func (r *Record) Set(name string, value any) bool {
	if r.IsConstant(name) {
		return false
	}
	r.variables[name] = value
	return true
}

// SetFields assigns every entry of fields through Set.
func (r *Record) SetFields(fields Fields) {
	for k, v := range fields {
		r.Set(k, v)
	}
}

// Unset removes a variable field.
func (r *Record) Unset(name string) {
	delete(r.variables, name)
}

// Get returns a variable field, falling back to the constant of that name.
func (r *Record) Get(name string) any {
	if v, ok := r.variables[name]; ok {
		return v
	}
	return r.constants[name]
}

// String returns the canonical string form of a field.
func (r *Record) String(name string) string {
	return Canonical(r.Get(name))
}

// Constants returns a copy of the constant fields.
func (r *Record) Constants() Fields {
	return r.constants.Clone()
}

// Variables returns a copy of the variable fields.
func (r *Record) Variables() Fields {
	return r.variables.Clone()
}

// All returns constants and variables merged into one mapping, as sent on create.
func (r *Record) All() Fields {
	out := r.constants.Clone()
	out.Merge(r.variables.Clone())
	return out
}
