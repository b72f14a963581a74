// Package registry maps source collector kinds to their constructors.
// This package is separate from the collectors to avoid circular dependencies.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/casesync/internal/sources/snapshot"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/sources"
)

// Config carries the settings any collector may need.
type Config struct {
	Kind sources.ID
	Path string
	Now  func() utc.Time
}

// registry maps collector IDs to their creation functions
var registry = map[sources.ID]func(Config) (sources.Collector, error){
	sources.SnapshotID: func(cfg Config) (sources.Collector, error) {
		if cfg.Path == "" {
			return nil, errors.NewConfigError("source", "source.path is required for the snapshot collector", nil)
		}
		return snapshot.New(cfg.Path, snapshot.WithClock(cfg.Now)), nil
	},
	sources.MemoryID: func(Config) (sources.Collector, error) {
		return sources.NewStatic(nil), nil
	},
}

// Get creates a NEW collector for cfg.Kind.
func Get(cfg Config) (sources.Collector, error) {
	kind := sources.ID(strings.ToLower(strings.TrimSpace(cfg.Kind.String())))
	newCollector, ok := registry[kind]
	if !ok {
		return nil, &errors.ValidationError{
			Field:   "source.kind",
			Value:   cfg.Kind,
			Message: fmt.Sprintf("unsupported source kind: %q", cfg.Kind),
		}
	}
	return newCollector(cfg)
}

// Has checks if a collector ID has an implementation.
func Has(id sources.ID) bool {
	_, ok := registry[id]
	return ok
}

// List returns all collector IDs that have implementations.
func List() []sources.ID {
	ids := make([]sources.ID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
