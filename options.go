package casesync

import (
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/records"
)

// config holds the settings of a Syncer.
type config struct {
	schemas         records.Schemas
	contactAccount  string
	dateWindow      time.Duration
	purgeWait       time.Duration
	deleteBatchSize int
	now             func() utc.Time
}

func defaultConfig() *config {
	return &config{
		schemas:         records.DefaultSchemas(),
		dateWindow:      constants.BirthdateWindow,
		purgeWait:       constants.PurgeWaitTimeout,
		deleteBatchSize: constants.DeleteBatchSize,
		now:             utc.Now,
	}
}

// Option is a function that configures a Syncer instance
type Option func(*config) error

func (s *syncer) options(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(s.config); err != nil {
			return err
		}
	}
	return nil
}

// WithSchemas overrides the remote table layouts.
func WithSchemas(schemas records.Schemas) Option {
	return func(c *config) error {
		c.schemas = schemas
		return nil
	}
}

// WithContactAccount configures the account newly created contacts belong to.
func WithContactAccount(id string) Option {
	return func(c *config) error {
		c.contactAccount = id
		return nil
	}
}

// WithDateWindow configures the birthdate tolerance.
func WithDateWindow(window time.Duration) Option {
	return func(c *config) error {
		if window < 0 {
			return &errors.ValidationError{Field: "date_window", Value: window, Message: "cannot be negative"}
		}
		c.dateWindow = window
		return nil
	}
}

// WithPurgeWait configures how long a purge may wait for the store.
func WithPurgeWait(wait time.Duration) Option {
	return func(c *config) error {
		if wait <= 0 {
			return &errors.ValidationError{Field: "purge_wait", Value: wait, Message: "must be positive"}
		}
		c.purgeWait = wait
		return nil
	}
}

// WithDeleteBatchSize configures how many ids a single delete call carries.
func WithDeleteBatchSize(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return &errors.ValidationError{Field: "delete_batch_size", Value: n, Message: "must be positive"}
		}
		c.deleteBatchSize = n
		return nil
	}
}

// WithClock configures the clock used for run timing and report names.
func WithClock(now func() utc.Time) Option {
	return func(c *config) error {
		if now == nil {
			return &errors.ValidationError{Field: "clock", Message: "cannot be nil"}
		}
		c.now = now
		return nil
	}
}
