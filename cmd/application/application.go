// Package application provides the application interface for casesync commands.
//
// Commands accept this interface rather than the concrete App type so they
// can be exercised with a mock:
//
//	mock := &application.Mock{
//	    SyncerFunc: func() (casesync.Syncer, error) {
//	        return casesync.New(memory.New(), sources.NewStatic(batch))
//	    },
//	}
//	cmd := sync.NewCommand(mock)
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/casesync"
	"github.com/agentstation/casesync/pkg/store"
	pkgsync "github.com/agentstation/casesync/pkg/sync"
)

// Application provides what commands need from the running app.
type Application interface {
	// Syncer returns the configured syncer, creating it lazily.
	Syncer() (casesync.Syncer, error)

	// Store returns the configured remote store, creating it lazily.
	Store() (store.Store, error)

	// SyncOptions returns the run options derived from configuration.
	// Command flags are appended after them and win.
	SyncOptions() []pkgsync.Option

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, wide, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
