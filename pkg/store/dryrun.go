package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/agentstation/casesync/pkg/records"
)

// DryRunPrefix starts every identifier handed out by a dry-run store.
const DryRunPrefix = "dryrun-"

// Write is a write captured by a dry-run store.
type Write struct {
	Op     string // "create", "update", "upload"
	Table  string
	ID     string
	Fields records.Fields
}

// DryRunStore passes reads through to the wrapped store and records writes
// with synthetic identifiers. Records created during the run are visible to
// later Find calls so repeated contacts resolve to one synthetic row.
type DryRunStore struct {
	inner      Store
	attachment records.AttachmentSchema

	mu      sync.RWMutex
	seq     int
	writes  []Write
	created map[string][]Row
	uploads map[string][]int64
}

// DryRunOption configures a DryRunStore.
type DryRunOption func(*DryRunStore)

// WithDryRunAttachmentSchema names the table and columns recorded for uploads.
func WithDryRunAttachmentSchema(schema records.AttachmentSchema) DryRunOption {
	return func(d *DryRunStore) {
		d.attachment = schema
	}
}

// NewDryRun wraps inner.
func NewDryRun(inner Store, opts ...DryRunOption) *DryRunStore {
	d := &DryRunStore{
		inner:      inner,
		attachment: records.DefaultSchemas().Attachment,
		created:    make(map[string][]Row),
		uploads:    make(map[string][]int64),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Writes returns the captured writes in order.
func (d *DryRunStore) Writes() []Write {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Write(nil), d.writes...)
}

// IsSynthetic reports whether id was handed out by a dry-run store.
func IsSynthetic(id string) bool {
	return strings.HasPrefix(id, DryRunPrefix)
}

// Find implements Store.
func (d *DryRunStore) Find(ctx context.Context, table string, cond Condition, fields ...string) ([]Row, error) {
	rows, err := d.inner.Find(ctx, table, cond, fields...)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, row := range d.created[table] {
		if Match(cond, row.Fields) {
			rows = append(rows, Row{ID: row.ID, Fields: Project(row.Fields, fields)})
		}
	}
	return rows, nil
}

// Create implements Store.
func (d *DryRunStore) Create(_ context.Context, table string, fields records.Fields) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	id := fmt.Sprintf("%s%d", DryRunPrefix, d.seq)
	d.created[table] = append(d.created[table], Row{ID: id, Fields: fields.Clone()})
	d.writes = append(d.writes, Write{Op: "create", Table: table, ID: id, Fields: fields.Clone()})
	return id, nil
}

// Update implements Store.
func (d *DryRunStore) Update(_ context.Context, table, id string, fields records.Fields) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, row := range d.created[table] {
		if row.ID == id {
			row.Fields.Merge(fields)
		}
	}
	d.writes = append(d.writes, Write{Op: "update", Table: table, ID: id, Fields: fields.Clone()})
	return nil
}

// AttachmentFingerprints implements Store.
func (d *DryRunStore) AttachmentFingerprints(ctx context.Context, ownerID string) ([]int64, error) {
	var lengths []int64
	if !IsSynthetic(ownerID) {
		var err error
		lengths, err = d.inner.AttachmentFingerprints(ctx, ownerID)
		if err != nil {
			return nil, err
		}
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append(lengths, d.uploads[ownerID]...), nil
}

// UploadAttachment implements Store.
func (d *DryRunStore) UploadAttachment(_ context.Context, ownerID string, attachment *records.Attachment) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	id := fmt.Sprintf("%s%d", DryRunPrefix, d.seq)
	d.uploads[ownerID] = append(d.uploads[ownerID], attachment.Fingerprint())
	d.writes = append(d.writes, Write{
		Op:     "upload",
		Table:  d.attachment.Table,
		ID:     id,
		Fields: records.Fields{
			d.attachment.OwnerField:  ownerID,
			d.attachment.NameField:   attachment.Name,
			d.attachment.LengthField: attachment.Fingerprint(),
		},
	})
	return id, nil
}

// DescribeLabels implements Store.
func (d *DryRunStore) DescribeLabels(ctx context.Context, table, field string) ([]string, error) {
	return d.inner.DescribeLabels(ctx, table, field)
}
