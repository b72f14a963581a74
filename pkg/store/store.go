// Package store defines the contract of the remote store that scraped
// records are synchronized into, along with the query conditions used to
// look records up and a dry-run wrapper that records writes instead of
// performing them.
package store

import (
	"context"

	"github.com/agentstation/casesync/pkg/records"
)

// IDField is the name of the remote identifier column.
const IDField = "Id"

// Row is one record returned by the remote store.
type Row struct {
	ID     string
	Fields records.Fields
}

// Store is the remote store the reconciler reads from and writes to.
// Implementations return errors wrapped as *errors.StoreError.
type Store interface {
	// Find returns the rows of table matching cond. When fields are given,
	// only those fields are returned; fields missing remotely come back nil.
	Find(ctx context.Context, table string, cond Condition, fields ...string) ([]Row, error)

	// Create inserts a row and returns its identifier.
	Create(ctx context.Context, table string, fields records.Fields) (string, error)

	// Update applies a partial update to an existing row.
	Update(ctx context.Context, table, id string, fields records.Fields) error

	// AttachmentFingerprints lists the content lengths of attachments owned by ownerID.
	AttachmentFingerprints(ctx context.Context, ownerID string) ([]int64, error)

	// UploadAttachment stores an attachment for ownerID and returns its identifier.
	UploadAttachment(ctx context.Context, ownerID string, attachment *records.Attachment) (string, error)

	// DescribeLabels returns the canonical picklist labels of table.field.
	DescribeLabels(ctx context.Context, table, field string) ([]string, error)
}

// Purger is implemented by stores that support bulk deletion.
type Purger interface {
	// IDs lists every record identifier of table.
	IDs(ctx context.Context, table string) ([]string, error)

	// Delete removes the given records and returns how many were deleted.
	Delete(ctx context.Context, table string, ids []string) (int, error)
}

// Closer is implemented by stores holding resources such as connections.
type Closer interface {
	Close() error
}
