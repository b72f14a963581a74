// Package snapshot implements a source collector that replays a scrape
// saved as YAML or JSON. It is how runs are rehearsed without touching
// the listing website.
package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/sources"
)

// Compile-time interface check.
var _ sources.Collector = (*Collector)(nil)

// Collector reads a snapshot file on every FetchAll.
type Collector struct {
	mu   sync.Mutex
	path string
	now  func() utc.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock sets the clock used when the snapshot has no captured_at.
func WithClock(now func() utc.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a snapshot collector for path.
func New(path string, opts ...Option) *Collector {
	c := &Collector{path: path, now: utc.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID implements sources.Collector.
func (c *Collector) ID() sources.ID {
	return sources.SnapshotID
}

// Path returns the snapshot file path.
func (c *Collector) Path() string {
	return c.path
}

// FetchAll implements sources.Collector.
func (c *Collector) FetchAll(ctx context.Context) (*sources.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return nil, errors.NewConfigError("source", "snapshot path is required", nil)
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, errors.WrapIO("read", c.path, err)
	}

	doc, err := Parse(data, c.path)
	if err != nil {
		return nil, err
	}
	now, err := doc.capturedAt(c.now)
	if err != nil {
		return nil, errors.NewParseError("date", c.path, err.Error(), err)
	}
	batch, err := doc.build(filepath.Dir(c.path), now)
	if err != nil {
		return nil, &errors.ValidationError{Field: "snapshot", Value: c.path, Message: err.Error()}
	}

	logging.FromContext(ctx).Info().
		Str("path", c.path).
		Int("persons", len(batch.Persons)).
		Int("groups", len(batch.Groups)).
		Msg("Loaded snapshot")
	return batch, nil
}

// Cleanup implements sources.Collector.
func (c *Collector) Cleanup() error {
	return nil
}

// Parse decodes a snapshot document. JSON documents parse as YAML.
func Parse(data []byte, path string) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewParseError(format(path), path, "invalid snapshot document", err)
	}
	return &doc, nil
}

func format(path string) string {
	if filepath.Ext(path) == ".json" {
		return "json"
	}
	return "yaml"
}
