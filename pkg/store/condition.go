package store

import (
	"strings"

	"github.com/agentstation/casesync/pkg/records"
)

// Condition is a query predicate over a row's fields. A nil Condition
// matches every row.
type Condition interface {
	condition()
}

// Eq matches rows whose field equals Value (canonical string comparison).
type Eq struct {
	Field string
	Value any
}

// Prefix matches rows whose field starts with Prefix, ignoring case.
type Prefix struct {
	Field  string
	Prefix string
}

// And matches rows matching every condition.
type And []Condition

// Or matches rows matching at least one condition.
type Or []Condition

func (Eq) condition()     {}
func (Prefix) condition() {}
func (And) condition()    {}
func (Or) condition()     {}

// Match evaluates cond against fields. Adapters without a query language
// (the memory and sqlite stores) use it to filter rows.
func Match(cond Condition, fields records.Fields) bool {
	switch c := cond.(type) {
	case nil:
		return true
	case Eq:
		return records.Canonical(fields.Get(c.Field)) == records.Canonical(c.Value)
	case Prefix:
		return strings.HasPrefix(
			strings.ToLower(records.Canonical(fields.Get(c.Field))),
			strings.ToLower(c.Prefix),
		)
	case And:
		for _, sub := range c {
			if !Match(sub, fields) {
				return false
			}
		}
		return true
	case Or:
		if len(c) == 0 {
			return true
		}
		for _, sub := range c {
			if Match(sub, fields) {
				return true
			}
		}
		return false
	}
	return false
}

// Project returns the requested fields of a row, nil for missing ones.
// With no fields requested the whole row is copied.
func Project(fields records.Fields, names []string) records.Fields {
	if len(names) == 0 {
		return fields.Clone()
	}
	out := make(records.Fields, len(names))
	for _, name := range names {
		out[name] = fields.Get(name)
	}
	return out
}
