// Package sources defines the contract of a source collector: the component
// that harvests persons and groups from a listing website (or a saved
// snapshot of one) and hands them to the sync orchestrator.
//
// Collectors own HTML extraction, image download and login sessions. The
// records they return are fully populated entities ready to be reconciled.
package sources

import (
	"context"
	"slices"
	"sync"
)

// ID represents the identifier of a source collector.
type ID string

// String returns the string representation of a source name.
func (id ID) String() string {
	return string(id)
}

// Common source names.
const (
	SnapshotID ID = "snapshot"
	MemoryID   ID = "memory"
)

// IDs returns all known collector identifiers.
func IDs() []ID {
	return []ID{
		SnapshotID,
		MemoryID,
	}
}

// IsValid returns true if the ID is one of the defined constants.
func (id ID) IsValid() bool {
	return slices.Contains(IDs(), id)
}

// Collector harvests entities for one run.
type Collector interface {
	// ID returns the identifier of this collector.
	ID() ID

	// FetchAll returns every person and group available from the source.
	FetchAll(ctx context.Context) (*Batch, error)

	// Cleanup releases any resources (called once after the run).
	Cleanup() error
}

// Static is a Collector returning a fixed batch. It backs tests and
// programmatic runs where the entities are already built.
type Static struct {
	mu    sync.RWMutex
	id    ID
	batch *Batch
}

// NewStatic creates a collector that always returns batch.
func NewStatic(batch *Batch) *Static {
	if batch == nil {
		batch = &Batch{}
	}
	return &Static{id: MemoryID, batch: batch}
}

// ID implements Collector.
func (s *Static) ID() ID {
	return s.id
}

// FetchAll implements Collector.
func (s *Static) FetchAll(ctx context.Context) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batch, nil
}

// Cleanup implements Collector.
func (s *Static) Cleanup() error {
	return nil
}
