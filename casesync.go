// Package casesync provides the main entry point for synchronizing scraped
// case listings into a remote CRM-like store.
//
// A Syncer runs one collection pass at a time: it fetches the canonical
// picklist labels, asks the source collector for every person and group,
// upserts them through the reconciler and writes a change report.
//
// Example usage:
//
//	s, err := casesync.New(remote, collector,
//	    casesync.WithContactAccount("001000000000001"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s.OnEntityFailed(func(o *reconciler.Outcome, err error) {
//	    log.Printf("%s %s failed: %v", o.Kind, o.CaseNumber, err)
//	})
//
//	result, err := s.Sync(ctx, sync.WithDryRun(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary())
package casesync

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/sources"
	"github.com/agentstation/casesync/pkg/store"
	pkgsync "github.com/agentstation/casesync/pkg/sync"
)

// Syncer synchronizes one source collector into one remote store.
type Syncer interface {
	// Sync runs one full collection and reconciliation pass.
	Sync(ctx context.Context, opts ...pkgsync.Option) (*pkgsync.Result, error)

	// Purge deletes every record of the given kinds, all kinds when none are given.
	Purge(ctx context.Context, kinds ...records.Kind) ([]pkgsync.PurgeOutcome, error)

	// Labels returns the canonical labels of every picklist field.
	Labels(ctx context.Context) (map[string][]string, error)

	// OnEntityAdded registers a callback for created entities
	OnEntityAdded(EntityAddedHook)

	// OnEntityUpdated registers a callback for updated entities
	OnEntityUpdated(EntityUpdatedHook)

	// OnEntityFailed registers a callback for entities that could not be reconciled
	OnEntityFailed(EntityFailedHook)
}

// syncer is the internal implementation of the Syncer interface
type syncer struct {
	mu        sync.Mutex // one run at a time
	store     store.Store
	collector sources.Collector
	config    *config

	// Event hooks
	*hooks
}

// New creates a Syncer writing to s and reading from c.
func New(s store.Store, c sources.Collector, opts ...Option) (Syncer, error) {
	if s == nil {
		return nil, &errors.ValidationError{Field: "store", Message: "cannot be nil"}
	}
	if c == nil {
		return nil, &errors.ValidationError{Field: "collector", Message: "cannot be nil"}
	}

	sc := &syncer{
		store:     s,
		collector: c,
		config:    defaultConfig(),
		hooks:     newHooks(),
	}
	if err := sc.options(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}
	return sc, nil
}

// Labels returns the canonical labels of every picklist field.
func (s *syncer) Labels(ctx context.Context) (map[string][]string, error) {
	return fetchLabels(ctx, s.store, s.config.schemas)
}

// fetchLabels asks the store once per picklist field.
func fetchLabels(ctx context.Context, st store.Store, schemas records.Schemas) (map[string][]string, error) {
	labels := make(map[string][]string)
	for _, schema := range []records.Schema{schemas.Person, schemas.Group} {
		for _, field := range schema.PicklistFields {
			if _, done := labels[field]; done {
				continue
			}
			values, err := st.DescribeLabels(ctx, schema.Table, field)
			if err != nil {
				return nil, err
			}
			labels[field] = values
		}
	}
	return labels, nil
}
