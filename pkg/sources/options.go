package sources

import "github.com/agentstation/casesync/pkg/records"

// Option configures a Static collector.
type Option func(*Static)

// WithID overrides the identifier reported by a Static collector.
func WithID(id ID) Option {
	return func(s *Static) {
		s.id = id
	}
}

// NewStaticWith creates a Static collector over persons and groups.
func NewStaticWith(persons []*records.Person, groups []*records.Group, opts ...Option) *Static {
	s := NewStatic(&Batch{Persons: persons, Groups: groups})
	for _, opt := range opts {
		opt(s)
	}
	return s
}
