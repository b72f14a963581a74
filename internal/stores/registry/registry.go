// Package registry maps remote store kinds to their constructors.
// It is separate from the adapters so the CLI can pick one by name.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agentstation/casesync/internal/stores/rest"
	"github.com/agentstation/casesync/internal/stores/sqlite"
	"github.com/agentstation/casesync/internal/transport"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/store"
	"github.com/agentstation/casesync/pkg/store/memory"
)

// Kind names a remote store adapter.
type Kind string

// Supported store kinds.
const (
	KindREST   Kind = "rest"
	KindSQLite Kind = "sqlite"
	KindMemory Kind = "memory"
)

// Config carries everything any adapter may need.
type Config struct {
	Kind       Kind
	URL        string
	Token      string
	APIVersion string
	Path       string
	Timeout    time.Duration
	Retries    int
	Schemas    records.Schemas
}

type constructor func(Config) (store.Store, error)

var registry = map[Kind]constructor{
	KindREST:   newREST,
	KindSQLite: newSQLite,
	KindMemory: func(Config) (store.Store, error) { return memory.New(), nil },
}

// Get creates a new store for cfg.Kind.
func Get(cfg Config) (store.Store, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(string(cfg.Kind))))
	newStore, ok := registry[kind]
	if !ok {
		return nil, &errors.ValidationError{
			Field:   "store.kind",
			Value:   cfg.Kind,
			Message: fmt.Sprintf("unsupported store kind: %q (supported: %s)", cfg.Kind, strings.Join(names(), ", ")),
		}
	}
	return newStore(cfg)
}

// Has checks if a store kind is registered.
func Has(kind Kind) bool {
	_, ok := registry[kind]
	return ok
}

// List returns the registered store kinds in sorted order.
func List() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func names() []string {
	var out []string
	for _, kind := range List() {
		out = append(out, string(kind))
	}
	return out
}

func newREST(cfg Config) (store.Store, error) {
	if cfg.URL == "" {
		return nil, errors.NewConfigError("store", "store.url is required for the rest store", nil)
	}
	var opts []transport.Option
	if cfg.Timeout > 0 {
		opts = append(opts, transport.WithTimeout(cfg.Timeout))
	}
	if cfg.Retries > 0 {
		opts = append(opts, transport.WithRetries(cfg.Retries))
	}
	client := transport.New(cfg.URL, cfg.Token, opts...)

	var storeOpts []rest.Option
	if cfg.APIVersion != "" {
		storeOpts = append(storeOpts, rest.WithAPIVersion(cfg.APIVersion))
	}
	if cfg.Schemas.Attachment.Table != "" {
		storeOpts = append(storeOpts, rest.WithAttachmentSchema(cfg.Schemas.Attachment))
	}
	return rest.New(client, storeOpts...), nil
}

func newSQLite(cfg Config) (store.Store, error) {
	var opts []sqlite.Option
	if cfg.Schemas.Attachment.Table != "" {
		opts = append(opts, sqlite.WithAttachmentSchema(cfg.Schemas.Attachment))
	}
	s, err := sqlite.Open(cfg.Path, opts...)
	if err != nil {
		return nil, errors.NewConfigError("store", "cannot open sqlite store", err)
	}
	return s, nil
}
