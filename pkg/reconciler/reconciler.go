// Package reconciler upserts scraped persons and groups into the remote
// store. For each entity it decides between create and update, resolves the
// caseworker contact, normalizes picklists, reports changes, fills fields
// that are empty remotely and uploads attachments not yet stored.
//
// Fields that changed between two non-empty values are reported but never
// overwritten, so edits made directly in the remote system survive.
package reconciler

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/casesync/pkg/attachments"
	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/contacts"
	"github.com/agentstation/casesync/pkg/differ"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/picklist"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/store"
)

// Reporter receives the report-worthy decisions of the reconciler.
type Reporter interface {
	WriteAdd(schema records.Schema, e records.Entity) error
	WriteUpdate(ctx context.Context, schema records.Schema, e records.Entity, cs *differ.Changeset) error
}

// Reconciler upserts entities one at a time. It is not safe for concurrent
// use; the remote store is treated as a serializing resource.
type Reconciler struct {
	store    store.Store
	schemas  records.Schemas
	reporter Reporter
	labels   map[string][]string
	contacts *contacts.Resolver
	dedup    *attachments.Deduplicator
	differs  map[records.Kind]*differ.Differ
}

// New creates a Reconciler writing to s.
func New(s store.Store, opts ...Option) (*Reconciler, error) {
	if s == nil {
		return nil, &errors.ValidationError{Field: "store", Message: "cannot be nil"}
	}
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}

	window := differ.DateWindow(o.dateWindow)
	return &Reconciler{
		store:    s,
		schemas:  o.schemas,
		reporter: o.reporter,
		labels:   o.labels,
		contacts: contacts.NewResolver(s,
			contacts.WithSchema(o.schemas.Contact),
			contacts.WithAccountID(o.contactAccount),
		),
		dedup: attachments.NewDeduplicator(s),
		differs: map[records.Kind]*differ.Differ{
			records.KindPerson: differ.ForSchema(o.schemas.Person, window),
			records.KindGroup:  differ.ForSchema(o.schemas.Group, window),
		},
	}, nil
}

// Schemas returns the layouts the reconciler writes.
func (r *Reconciler) Schemas() records.Schemas {
	return r.schemas
}

// Upsert dispatches on the entity type. Anything other than a person or a
// group is rejected before any remote call.
func (r *Reconciler) Upsert(ctx context.Context, e records.Entity) (*Outcome, error) {
	switch v := e.(type) {
	case *records.Person:
		return r.UpsertPerson(ctx, v)
	case *records.Group:
		return r.UpsertGroup(ctx, v)
	case nil:
		return nil, &errors.ValidationError{Field: "entity", Message: "cannot be nil"}
	default:
		return nil, &errors.ValidationError{
			Field:   "entity",
			Value:   e.Kind(),
			Message: fmt.Sprintf("cannot upsert a %s", e.Kind()),
		}
	}
}

// UpsertPerson creates or updates a person. On success the person carries
// its remote identifier.
func (r *Reconciler) UpsertPerson(ctx context.Context, p *records.Person) (*Outcome, error) {
	if p == nil || p.Record == nil {
		return nil, &errors.ValidationError{Field: "person", Message: "cannot be nil"}
	}
	schema := r.schemas.Person
	if err := validate(p.Record, schema); err != nil {
		return nil, err
	}

	u := &upsert{
		schema:      schema,
		rec:         p.Record,
		entity:      p,
		contact:     p.Contact,
		attachments: p.Attachments,
	}
	return r.run(ctx, u, nil)
}

// UpsertGroup upserts each member in order, writes the positional member
// references and then creates or updates the group itself. A failing member
// leaves its reference unset without stopping its siblings or the group;
// member failures are returned joined together with the group outcome.
func (r *Reconciler) UpsertGroup(ctx context.Context, g *records.Group) (*Outcome, error) {
	if g == nil || g.Record == nil {
		return nil, &errors.ValidationError{Field: "group", Message: "cannot be nil"}
	}
	schema := r.schemas.Group
	if err := validate(g.Record, schema); err != nil {
		return nil, err
	}

	u := &upsert{
		schema:      schema,
		rec:         g.Record,
		entity:      g,
		contact:     g.Contact,
		attachments: g.Attachments,
	}
	return r.run(ctx, u, g)
}

// upsert is the per-call state of one entity.
type upsert struct {
	schema      records.Schema
	rec         *records.Record
	entity      records.Entity
	contact     *records.Contact
	attachments []*records.Attachment
	existing    *store.Row
	outcome     *Outcome
	logger      *zerolog.Logger
}

func (r *Reconciler) run(ctx context.Context, u *upsert, group *records.Group) (*Outcome, error) {
	caseNumber := u.rec.String(u.schema.CaseNumberField)
	ctx = logging.WithEntity(ctx, u.schema.Label, caseNumber)
	u.logger = logging.FromContext(ctx)
	u.outcome = &Outcome{
		Kind:       u.rec.Kind(),
		CaseNumber: caseNumber,
		Name:       u.rec.String(u.schema.NameField),
		Action:     ActionFailed,
	}
	u.logger.Info().Str("name", u.outcome.Name).Msg("Reconciling")

	fail := func(err error) (*Outcome, error) {
		u.outcome.ID = u.rec.ID()
		u.outcome.Err = errors.NewEntityError(u.schema.Label, caseNumber, err)
		return u.outcome, u.outcome.Err
	}

	// lookup
	if err := r.lookup(ctx, u, group); err != nil {
		return fail(err)
	}

	// members first, their ids are referenced by position
	var memberErrs []error
	if group != nil {
		memberErrs = r.upsertMembers(ctx, u, group)
	}

	if err := r.resolveContact(ctx, u); err != nil {
		return fail(stderrors.Join(append(memberErrs, err)...))
	}
	r.normalizePicklists(u)

	if err := r.commit(ctx, u); err != nil {
		return fail(stderrors.Join(append(memberErrs, err)...))
	}
	if err := r.syncAttachments(ctx, u); err != nil {
		return fail(stderrors.Join(append(memberErrs, err)...))
	}

	u.outcome.ID = u.rec.ID()
	u.logger.Info().
		Str("id", u.outcome.ID).
		Str("action", string(u.outcome.Action)).
		Int("uploaded", u.outcome.Uploaded).
		Msg("Reconciled")

	if len(memberErrs) > 0 {
		return u.outcome, stderrors.Join(memberErrs...)
	}
	return u.outcome, nil
}

// lookup finds the existing remote record by exact case number.
func (r *Reconciler) lookup(ctx context.Context, u *upsert, group *records.Group) error {
	caseNumber := u.rec.String(u.schema.CaseNumberField)
	fields := u.rec.Variables().Names()
	if u.contact != nil && u.schema.ContactField != "" {
		fields = append(fields, u.schema.ContactField)
	}
	if group != nil {
		for i := range group.Members {
			fields = append(fields, u.schema.MemberRef(i+1))
		}
	}
	fields = dedupe(fields)

	rows, err := r.store.Find(ctx, u.schema.Table,
		store.Eq{Field: u.schema.CaseNumberField, Value: caseNumber}, fields...)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		u.logger.Debug().Msg("No existing record")
		return nil
	}
	if len(rows) > 1 {
		u.logger.Warn().Int("matches", len(rows)).Msg("Case number matched several records, using the first")
	}
	u.existing = &rows[0]
	u.rec.SetID(rows[0].ID)
	return nil
}

func (r *Reconciler) upsertMembers(ctx context.Context, u *upsert, g *records.Group) []error {
	personSchema := r.schemas.Person
	names := g.MemberNames(personSchema.NameField)

	var errs []error
	u.outcome.Members = make([]*Outcome, 0, len(g.Members))
	for i, member := range g.Members {
		if personSchema.SiblingNoteField != "" {
			others := make([]string, 0, len(names)-1)
			for j, name := range names {
				if j != i {
					others = append(others, name)
				}
			}
			member.Set(personSchema.SiblingNoteField, strings.Join(others, constants.SiblingSeparator))
		}

		out, err := r.UpsertPerson(ctx, member)
		if out == nil {
			out = &Outcome{Kind: records.KindPerson, Action: ActionFailed, Err: err}
		}
		u.outcome.Members = append(u.outcome.Members, out)
		if err != nil {
			u.logger.Error().Err(err).Int("position", i+1).Msg("Member failed, leaving its reference unset")
			errs = append(errs, err)
			continue
		}
		u.rec.Set(u.schema.MemberRef(i+1), member.ID())
	}
	return errs
}

func (r *Reconciler) resolveContact(ctx context.Context, u *upsert) error {
	if u.contact == nil || u.schema.ContactField == "" {
		return nil
	}
	found, err := r.contacts.Resolve(ctx, u.contact, true)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return nil
	}
	if len(found) > 1 {
		u.logger.Warn().
			Int("matches", len(found)).
			Str("contact", found[0].ID()).
			Msg("Contact matched several records, using the first")
	}
	u.rec.Set(u.schema.ContactField, found[0].ID())
	return nil
}

// normalizePicklists maps picklist values onto the registered labels. A
// field without labels maps every value to "Unknown".
func (r *Reconciler) normalizePicklists(u *upsert) {
	for _, field := range u.schema.PicklistFields {
		if joined, ok := picklist.Normalize(u.rec.Get(field), r.labels[field]); ok {
			u.rec.Set(field, joined)
		}
	}
}

// commit creates a new record or diffs against the existing one. Only
// fields empty remotely are written back.
func (r *Reconciler) commit(ctx context.Context, u *upsert) error {
	if u.existing == nil {
		id, err := r.store.Create(ctx, u.schema.Table, u.rec.All())
		if err != nil {
			return err
		}
		u.rec.SetID(id)
		u.outcome.Action = ActionCreated
		if r.reporter != nil {
			if err := r.reporter.WriteAdd(u.schema, u.entity); err != nil {
				return err
			}
			u.outcome.Reported = true
		}
		return nil
	}

	d := r.differs[u.schema.Kind]
	cs := d.Diff(u.existing.Fields, u.rec.Variables())
	u.outcome.Changeset = cs
	u.outcome.Action = ActionUnchanged

	if cs.Reportable(d.TouchField()) {
		u.outcome.Action = ActionUpdated
		u.logger.Debug().Strs("fields", cs.Fields()).Msg("Changes found")
		if r.reporter != nil {
			if err := r.reporter.WriteUpdate(ctx, u.schema, u.entity, cs); err != nil {
				return err
			}
			u.outcome.Reported = true
		}
	}

	partial := cs.NullToValue()
	if len(partial) == 0 {
		return nil
	}
	if err := r.store.Update(ctx, u.schema.Table, u.rec.ID(), partial); err != nil {
		return err
	}
	u.outcome.Written = partial
	u.outcome.Action = ActionUpdated
	return nil
}

// syncAttachments uploads attachments not yet stored and embeds the
// primary portrait into the owner's photo field.
func (r *Reconciler) syncAttachments(ctx context.Context, u *upsert) error {
	if len(u.attachments) == 0 {
		return nil
	}
	fresh, err := r.dedup.FilterNew(ctx, u.rec.ID(), u.attachments)
	if err != nil {
		return err
	}
	for _, a := range fresh {
		if _, err := r.store.UploadAttachment(ctx, u.rec.ID(), a); err != nil {
			return err
		}
		u.outcome.Uploaded++

		if !a.Primary || u.schema.PhotoField == "" {
			continue
		}
		img, err := attachments.PortraitHTML(u.rec.String(u.schema.NameField), a)
		if err != nil {
			return err
		}
		if err := r.store.Update(ctx, u.schema.Table, u.rec.ID(), records.Fields{u.schema.PhotoField: img}); err != nil {
			return err
		}
	}
	return nil
}

func validate(rec *records.Record, schema records.Schema) error {
	if rec.Kind() != schema.Kind {
		return &errors.ValidationError{
			Field:   "kind",
			Value:   rec.Kind(),
			Message: fmt.Sprintf("expected a %s record", schema.Kind),
		}
	}
	if rec.Table() != schema.Table {
		return &errors.ValidationError{
			Field:   "table",
			Value:   rec.Table(),
			Message: fmt.Sprintf("expected table %s", schema.Table),
		}
	}
	if rec.String(schema.CaseNumberField) == "" {
		return &errors.ValidationError{
			Field:   schema.CaseNumberField,
			Message: "case number is required",
		}
	}
	return nil
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if n == "" || n == store.IDField || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
