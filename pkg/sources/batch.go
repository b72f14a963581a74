package sources

import (
	"fmt"

	"github.com/agentstation/casesync/pkg/records"
)

// Batch is everything a collector harvested in one pass.
type Batch struct {
	Persons []*records.Person
	Groups  []*records.Group
}

// Len returns the number of top-level entities plus group members.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	n := len(b.Persons) + len(b.Groups)
	for _, g := range b.Groups {
		n += len(g.Members)
	}
	return n
}

// Standalone returns the persons that are not members of a collected group,
// in collection order. Group members are reconciled with their group.
func (b *Batch) Standalone() []*records.Person {
	if b == nil {
		return nil
	}
	members := make(map[*records.Person]bool)
	for _, g := range b.Groups {
		for _, m := range g.Members {
			members[m] = true
		}
	}

	out := make([]*records.Person, 0, len(b.Persons))
	for _, p := range b.Persons {
		if p == nil || members[p] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Validate checks that no person is a member of two collected groups.
func (b *Batch) Validate() error {
	if b == nil {
		return nil
	}
	owner := make(map[*records.Person]*records.Group)
	for _, g := range b.Groups {
		if g == nil {
			return fmt.Errorf("nil group in batch")
		}
		for _, m := range g.Members {
			if prev, ok := owner[m]; ok && prev != g {
				return fmt.Errorf("person %s is a member of more than one group", m.String("Case_Number__c"))
			}
			owner[m] = g
		}
	}
	return nil
}
