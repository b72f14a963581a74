// Package memory provides an in-memory remote store. It backs tests and
// offline runs and records every call it receives.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/store"
)

// Call is one recorded store operation.
type Call struct {
	Op     string // "find", "create", "update", "fingerprints", "upload", "describe", "delete"
	Table  string
	ID     string
	Cond   store.Condition
	Fields records.Fields
}

// FaultFunc can fail an operation before it is applied.
type FaultFunc func(op, table string, fields records.Fields) error

// Store is a thread-safe in-memory Store and Purger.
type Store struct {
	mu          sync.RWMutex
	seq         int
	tables      map[string]map[string]records.Fields
	order       map[string][]string
	labels      map[string][]string
	attachments map[string][]*records.Attachment
	calls       []Call
	fault       FaultFunc
}

// Option configures a Store.
type Option func(*Store)

// WithLabels registers the canonical picklist labels of table.field.
func WithLabels(table, field string, labels ...string) Option {
	return func(s *Store) {
		s.labels[table+"."+field] = append([]string(nil), labels...)
	}
}

// WithFault installs a fault injector.
func WithFault(fn FaultFunc) Option {
	return func(s *Store) {
		s.fault = fn
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		tables:      make(map[string]map[string]records.Fields),
		order:       make(map[string][]string),
		labels:      make(map[string][]string),
		attachments: make(map[string][]*records.Attachment),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed inserts a row without recording a call and returns its id.
func (s *Store) Seed(table string, fields records.Fields) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(table, fields)
}

// SeedAttachment stores an attachment for owner without recording a call.
func (s *Store) SeedAttachment(ownerID string, attachment *records.Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments[ownerID] = append(s.attachments[ownerID], attachment)
}

// Get returns a copy of a row.
func (s *Store) Get(table, id string) (records.Fields, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.tables[table][id]
	if !ok {
		return nil, false
	}
	return row.Clone(), true
}

// Rows returns every row of table in insertion order.
func (s *Store) Rows(table string) []store.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]store.Row, 0, len(s.order[table]))
	for _, id := range s.order[table] {
		rows = append(rows, store.Row{ID: id, Fields: s.tables[table][id].Clone()})
	}
	return rows
}

// Attachments returns the attachments stored for owner.
func (s *Store) Attachments(ownerID string) []*records.Attachment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*records.Attachment(nil), s.attachments[ownerID]...)
}

// Calls returns the recorded calls in order.
func (s *Store) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Call(nil), s.calls...)
}

// CallsFor returns the recorded calls of one operation.
func (s *Store) CallsFor(op string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Find implements store.Store.
func (s *Store) Find(ctx context.Context, table string, cond store.Condition, fields ...string) ([]store.Row, error) {
	if err := s.begin(ctx, Call{Op: "find", Table: table, Cond: cond}); err != nil {
		return nil, errors.WrapStore("find", table, "", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []store.Row
	for _, id := range s.order[table] {
		row := s.tables[table][id]
		if store.Match(cond, row) {
			rows = append(rows, store.Row{ID: id, Fields: store.Project(row, fields)})
		}
	}
	return rows, nil
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, table string, fields records.Fields) (string, error) {
	if err := s.begin(ctx, Call{Op: "create", Table: table, Fields: fields.Clone()}); err != nil {
		return "", errors.WrapStore("create", table, "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(table, fields), nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, table, id string, fields records.Fields) error {
	if err := s.begin(ctx, Call{Op: "update", Table: table, ID: id, Fields: fields.Clone()}); err != nil {
		return errors.WrapStore("update", table, id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.tables[table][id]
	if !ok {
		return errors.WrapStore("update", table, id, errors.NewNotFoundError(table, id))
	}
	row.Merge(fields.Clone())
	return nil
}

// AttachmentFingerprints implements store.Store.
func (s *Store) AttachmentFingerprints(ctx context.Context, ownerID string) ([]int64, error) {
	table := records.DefaultSchemas().Attachment.Table
	if err := s.begin(ctx, Call{Op: "fingerprints", Table: table, ID: ownerID}); err != nil {
		return nil, errors.WrapStore("find", table, ownerID, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	lengths := make([]int64, 0, len(s.attachments[ownerID]))
	for _, a := range s.attachments[ownerID] {
		lengths = append(lengths, a.Fingerprint())
	}
	return lengths, nil
}

// UploadAttachment implements store.Store.
func (s *Store) UploadAttachment(ctx context.Context, ownerID string, attachment *records.Attachment) (string, error) {
	table := records.DefaultSchemas().Attachment.Table
	call := Call{Op: "upload", Table: table, ID: ownerID, Fields: records.Fields{"Name": attachment.Name}}
	if err := s.begin(ctx, call); err != nil {
		return "", errors.WrapStore("upload", table, ownerID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *attachment
	s.attachments[ownerID] = append(s.attachments[ownerID], &copied)
	s.seq++
	return fmt.Sprintf("att-%d", s.seq), nil
}

// DescribeLabels implements store.Store.
func (s *Store) DescribeLabels(ctx context.Context, table, field string) ([]string, error) {
	if err := s.begin(ctx, Call{Op: "describe", Table: table, Fields: records.Fields{"field": field}}); err != nil {
		return nil, errors.WrapStore("describe", table, "", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.labels[table+"."+field]...), nil
}

// IDs implements store.Purger.
func (s *Store) IDs(ctx context.Context, table string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if table == records.DefaultSchemas().Attachment.Table {
		owners := make([]string, 0, len(s.attachments))
		for owner := range s.attachments {
			owners = append(owners, owner)
		}
		sort.Strings(owners)
		return owners, nil
	}
	return append([]string(nil), s.order[table]...), nil
}

// Delete implements store.Purger. Deleting from the attachment table takes
// owner ids and removes every attachment of those owners.
func (s *Store) Delete(ctx context.Context, table string, ids []string) (int, error) {
	if err := s.begin(ctx, Call{Op: "delete", Table: table}); err != nil {
		return 0, errors.WrapStore("delete", table, "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	if table == records.DefaultSchemas().Attachment.Table {
		for _, owner := range ids {
			deleted += len(s.attachments[owner])
			delete(s.attachments, owner)
		}
		return deleted, nil
	}

	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.tables[table][id]; ok {
			remove[id] = true
			delete(s.tables[table], id)
			deleted++
		}
	}
	kept := s.order[table][:0]
	for _, id := range s.order[table] {
		if !remove[id] {
			kept = append(kept, id)
		}
	}
	s.order[table] = kept
	return deleted, nil
}

func (s *Store) begin(ctx context.Context, call Call) error {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	fault := s.fault
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if fault != nil {
		return fault(call.Op, call.Table, call.Fields)
	}
	return nil
}

func (s *Store) insert(table string, fields records.Fields) string {
	if s.tables[table] == nil {
		s.tables[table] = make(map[string]records.Fields)
	}
	s.seq++
	id := fmt.Sprintf("%s-%d", strings.ToLower(strings.TrimSuffix(table, "__c")), s.seq)
	row := fields.Clone()
	delete(row, store.IDField)
	s.tables[table][id] = row
	s.order[table] = append(s.order[table], id)
	return id
}
