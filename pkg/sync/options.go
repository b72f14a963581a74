// Package sync provides the options and results of a casesync run.
package sync

import (
	"os"
	"time"

	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
)

// Options controls one run of Syncer.Sync.
type Options struct {
	// Orchestration control
	DryRun   bool          // Record writes with synthetic ids instead of applying them
	FailFast bool          // Stop on the first entity error instead of continuing
	Timeout  time.Duration // Timeout for the entire run, zero means none

	// Output control
	ReportDir string // Directory of the change report
	NoReport  bool   // Skip writing the change report
}

// Apply applies the given options to the sync options.
func (s *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns the default sync options.
func Defaults() *Options {
	return &Options{
		DryRun:    false,
		FailFast:  false,
		Timeout:   constants.SyncTimeout,
		ReportDir: constants.DefaultReportDir,
	}
}

// Option is a function that configures sync Options.
type Option func(*Options)

// Validate checks if the sync options are valid.
func (s *Options) Validate() error {
	if s.Timeout < 0 {
		return &errors.ValidationError{
			Field:   "Timeout",
			Value:   s.Timeout,
			Message: "timeout must be non-negative",
		}
	}

	if s.ReportDir != "" && !s.NoReport {
		info, err := os.Stat(s.ReportDir)
		if err == nil && !info.IsDir() {
			return &errors.ValidationError{
				Field:   "ReportDir",
				Value:   s.ReportDir,
				Message: "report path is not a directory",
			}
		}
	}

	return nil
}

// WithDryRun configures dry run mode.
func WithDryRun(dryRun bool) Option {
	return func(opts *Options) {
		opts.DryRun = dryRun
	}
}

// WithFailFast configures fail-fast behavior.
func WithFailFast(failFast bool) Option {
	return func(opts *Options) {
		opts.FailFast = failFast
	}
}

// WithTimeout configures the run timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// WithReportDir configures where the change report is written.
func WithReportDir(dir string) Option {
	return func(opts *Options) {
		opts.ReportDir = dir
	}
}

// WithNoReport disables the change report.
func WithNoReport(disabled bool) Option {
	return func(opts *Options) {
		opts.NoReport = disabled
	}
}
