// Package app provides the application context and dependency management
// for the casesync CLI. It centralizes configuration, the remote store and
// the source collector, and the lifecycle of both.
package app

import (
	"context"
	"sync"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/casesync"
	"github.com/agentstation/casesync/cmd/application"
	sourceregistry "github.com/agentstation/casesync/internal/sources/registry"
	storeregistry "github.com/agentstation/casesync/internal/stores/registry"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/sources"
	"github.com/agentstation/casesync/pkg/store"
	pkgsync "github.com/agentstation/casesync/pkg/sync"
)

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)

// App represents the casesync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Lazy-initialized, singletons
	mu        sync.Mutex
	store     store.Store
	collector sources.Collector
	syncer    casesync.Syncer
}

// New creates a new App instance with the given version information.
// Configuration is read from the given file, or searched for when empty.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.config == nil {
		config, err := LoadConfig("")
		if err != nil {
			return nil, err
		}
		app.config = config
	}
	if app.logger == nil {
		logger := NewLogger(app.config)
		app.logger = &logger
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// SyncOptions returns the run options derived from configuration.
func (a *App) SyncOptions() []pkgsync.Option {
	var opts []pkgsync.Option
	if a.config.Timeout > 0 {
		opts = append(opts, pkgsync.WithTimeout(a.config.Timeout))
	}
	if a.config.ReportDir != "" {
		opts = append(opts, pkgsync.WithReportDir(a.config.ReportDir))
	}
	return opts
}

// Store returns the remote store, creating it lazily if needed.
func (a *App) Store() (store.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.storeLocked()
}

func (a *App) storeLocked() (store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if err := a.config.Validate(); err != nil {
		return nil, err
	}

	st, err := storeregistry.Get(storeregistry.Config{
		Kind:       storeregistry.Kind(a.config.StoreKind),
		URL:        a.config.StoreURL,
		Token:      a.config.StoreToken,
		APIVersion: a.config.StoreAPIVersion,
		Path:       a.config.StorePath,
		Schemas:    records.DefaultSchemas(),
	})
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("kind", a.config.StoreKind).Msg("Remote store ready")
	a.store = st
	return st, nil
}

// Syncer returns the syncer, creating it lazily if needed.
func (a *App) Syncer() (casesync.Syncer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.syncer != nil {
		return a.syncer, nil
	}

	st, err := a.storeLocked()
	if err != nil {
		return nil, err
	}
	if a.collector == nil {
		c, err := sourceregistry.Get(sourceregistry.Config{
			Kind: sources.ID(a.config.SourceKind),
			Path: a.config.SourcePath,
			Now:  utc.Now,
		})
		if err != nil {
			return nil, err
		}
		a.collector = c
	}

	var opts []casesync.Option
	if a.config.ContactAccount != "" {
		opts = append(opts, casesync.WithContactAccount(a.config.ContactAccount))
	}
	s, err := casesync.New(st, a.collector, opts...)
	if err != nil {
		return nil, errors.NewConfigError("syncer", "cannot create syncer", err)
	}
	a.syncer = s
	return s, nil
}

// Shutdown performs graceful shutdown of the application.
// It closes the remote store if it holds resources.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if closer, ok := a.store.(store.Closer); ok {
		if err := closer.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close remote store during shutdown")
			return err
		}
	}
	a.store = nil
	a.syncer = nil
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithStore sets a custom remote store (useful for testing).
func WithStore(s store.Store) Option {
	return func(a *App) error {
		a.store = s
		return nil
	}
}

// WithCollector sets a custom source collector (useful for testing).
func WithCollector(c sources.Collector) Option {
	return func(a *App) error {
		a.collector = c
		return nil
	}
}
