package reconciler

import (
	"time"

	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/records"
)

type options struct {
	schemas        records.Schemas
	reporter       Reporter
	labels         map[string][]string
	contactAccount string
	dateWindow     time.Duration
}

func defaultOptions() *options {
	return &options{
		schemas:    records.DefaultSchemas(),
		labels:     make(map[string][]string),
		dateWindow: constants.BirthdateWindow,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithSchemas overrides the remote table layouts.
func WithSchemas(schemas records.Schemas) Option {
	return func(o *options) error {
		if schemas.Person.Table == "" || schemas.Group.Table == "" || schemas.Contact.Table == "" {
			return &errors.ValidationError{Field: "schemas", Message: "table names cannot be empty"}
		}
		o.schemas = schemas
		return nil
	}
}

// WithReporter sets where add and update sections are written.
func WithReporter(r Reporter) Option {
	return func(o *options) error {
		o.reporter = r
		return nil
	}
}

// WithPicklistLabels sets the canonical labels of a picklist field.
func WithPicklistLabels(field string, labels []string) Option {
	return func(o *options) error {
		if field == "" {
			return &errors.ValidationError{Field: "field", Message: "cannot be empty"}
		}
		o.labels[field] = append([]string(nil), labels...)
		return nil
	}
}

// WithContactAccount sets the account id attached to newly created contacts.
func WithContactAccount(id string) Option {
	return func(o *options) error {
		o.contactAccount = id
		return nil
	}
}

// WithDateWindow sets the birthdate tolerance.
func WithDateWindow(window time.Duration) Option {
	return func(o *options) error {
		if window < 0 {
			return &errors.ValidationError{Field: "date_window", Value: window, Message: "cannot be negative"}
		}
		o.dateWindow = window
		return nil
	}
}
