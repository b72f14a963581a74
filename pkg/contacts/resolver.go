// Package contacts finds or creates caseworker contacts using loose name and
// address matching. The heuristic prefers false positives: merging two
// near-duplicate contacts by hand is cheaper than cleaning up duplicates.
package contacts

import (
	"context"

	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/store"
)

var (
	addressFields = []string{
		records.MailingStreet,
		records.MailingCity,
		records.MailingState,
		records.MailingPostalCode,
	}

	phoneFields = []string{
		records.Phone,
		records.MobilePhone,
		records.HomePhone,
		records.OtherPhone,
	}

	selectFields = []string{
		records.FirstName,
		records.LastName,
		records.MailingStreet,
		records.MailingCity,
		records.MailingState,
		records.MailingPostalCode,
		records.Phone,
	}
)

// Resolver finds or creates contacts in a remote store.
type Resolver struct {
	store     store.Store
	schema    records.Schema
	accountID string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAccountID sets the account new contacts are attached to.
func WithAccountID(id string) Option {
	return func(r *Resolver) {
		r.accountID = id
	}
}

// WithSchema overrides the contact schema.
func WithSchema(schema records.Schema) Option {
	return func(r *Resolver) {
		r.schema = schema
	}
}

// NewResolver creates a Resolver over s.
func NewResolver(s store.Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:  s,
		schema: records.DefaultSchemas().Contact,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Query builds the lookup condition for a candidate:
// (first-name alternates) AND last-name prefix AND every populated address field.
func Query(candidate *records.Contact) (store.Condition, error) {
	if candidate == nil {
		return nil, errors.NewValidationError("contact", nil, "missing contact")
	}
	alternates := FirstNameAlternates(candidate.String(records.FirstName))
	if len(alternates) == 0 {
		return nil, errors.NewValidationError(records.FirstName, candidate.Get(records.FirstName), "first name is required")
	}
	last := LastNamePrefix(candidate.String(records.LastName))
	if last == "" {
		return nil, errors.NewValidationError(records.LastName, candidate.Get(records.LastName), "last name is required")
	}

	names := make(store.Or, 0, len(alternates))
	for _, alt := range alternates {
		names = append(names, store.Prefix{Field: records.FirstName, Prefix: alt})
	}

	cond := store.And{names, store.Prefix{Field: records.LastName, Prefix: last}}
	for _, field := range addressFields {
		if v := candidate.String(field); v != "" {
			cond = append(cond, store.Eq{Field: field, Value: v})
		}
	}
	return cond, nil
}

// Resolve returns the contacts matching candidate. When none match and
// create is set, the candidate is created remotely and returned alone.
// Several matches are not an error; callers take the first.
func (r *Resolver) Resolve(ctx context.Context, candidate *records.Contact, create bool) ([]*records.Contact, error) {
	cond, err := Query(candidate)
	if err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx).With().
		Str("contact", candidate.FullName()).
		Logger()

	rows, err := r.store.Find(ctx, r.schema.Table, cond, selectFields...)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		logger.Debug().Int("matches", len(rows)).Msg("Contact matched")
		found := make([]*records.Contact, 0, len(rows))
		for _, row := range rows {
			found = append(found, records.ContactFromRow(row.ID, row.Fields))
		}
		return found, nil
	}
	if !create {
		return []*records.Contact{}, nil
	}

	fields := r.creationFields(candidate)
	id, err := r.store.Create(ctx, r.schema.Table, fields)
	if err != nil {
		return nil, err
	}
	candidate.SetID(id)
	logger.Info().Str("id", id).Msg("Contact created")
	return []*records.Contact{candidate}, nil
}

func (r *Resolver) creationFields(candidate *records.Contact) records.Fields {
	fields := candidate.All()
	for _, field := range phoneFields {
		raw := records.Canonical(fields.Get(field))
		if raw == "" {
			continue
		}
		if phone, ok := NormalizePhone(raw); ok {
			fields[field] = phone
		} else {
			delete(fields, field)
		}
	}
	if r.accountID != "" && r.schema.AccountField != "" {
		fields[r.schema.AccountField] = r.accountID
	}
	return fields
}
