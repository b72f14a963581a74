// Package sqlite implements the remote store on a local SQLite database.
// It stands in for the CRM in offline runs and rehearsals: rows keep their
// fields as JSON documents and lookups filter them with store.Match.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/agentstation/casesync/pkg/attachments"
	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/store"
)

//go:embed schema.sql
var schema string

// Compile-time interface checks.
var (
	_ store.Store  = (*Store)(nil)
	_ store.Purger = (*Store)(nil)
	_ store.Closer = (*Store)(nil)
)

// Store is a SQLite-backed remote store.
type Store struct {
	mu         sync.RWMutex
	db         *sql.DB
	path       string
	attachment records.AttachmentSchema
}

// Option configures a Store.
type Option func(*Store)

// WithAttachmentSchema overrides the attachment table layout.
func WithAttachmentSchema(schema records.AttachmentSchema) Option {
	return func(s *Store) {
		s.attachment = schema
	}
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = constants.DefaultSQLitePath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
			return nil, errors.WrapIO("create", filepath.Dir(path), err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	// one connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:         db,
		path:       path,
		attachment: records.DefaultSchemas().Attachment,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close implements store.Closer.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetLabels replaces the canonical picklist labels of table.field.
func (s *Store) SetLabels(ctx context.Context, table, field string, labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapStore("describe", table, "", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM picklists WHERE table_name = ? AND field = ?", table, field); err != nil {
		return errors.WrapStore("describe", table, "", err)
	}
	for i, label := range labels {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO picklists (table_name, field, position, label) VALUES (?, ?, ?, ?)",
			table, field, i, label); err != nil {
			return errors.WrapStore("describe", table, "", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.WrapStore("describe", table, "", err)
	}
	return nil
}

// Find implements store.Store.
func (s *Store) Find(ctx context.Context, table string, cond store.Condition, fields ...string) ([]store.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, fields FROM records WHERE table_name = ? ORDER BY seq", table)
	if err != nil {
		return nil, errors.WrapStore("find", table, "", err)
	}
	defer rows.Close()

	var out []store.Row
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, errors.WrapStore("find", table, "", err)
		}
		row, err := decode(doc)
		if err != nil {
			return nil, errors.WrapStore("find", table, id, err)
		}
		if store.Match(cond, row) {
			out = append(out, store.Row{ID: id, Fields: store.Project(row, fields)})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStore("find", table, "", err)
	}
	return out, nil
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, table string, fields records.Fields) (string, error) {
	row := fields.Clone()
	delete(row, store.IDField)
	doc, err := encode(row)
	if err != nil {
		return "", errors.WrapStore("create", table, "", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO records (table_name, id, fields) VALUES (?, ?, ?)", table, id, doc); err != nil {
		return "", errors.WrapStore("create", table, "", err)
	}
	return id, nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, table, id string, fields records.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc string
	err := s.db.QueryRowContext(ctx,
		"SELECT fields FROM records WHERE table_name = ? AND id = ?", table, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return errors.WrapStore("update", table, id, errors.NewNotFoundError(table, id))
	}
	if err != nil {
		return errors.WrapStore("update", table, id, err)
	}

	row, err := decode(doc)
	if err != nil {
		return errors.WrapStore("update", table, id, err)
	}
	row.Merge(fields)
	delete(row, store.IDField)
	if doc, err = encode(row); err != nil {
		return errors.WrapStore("update", table, id, err)
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE records SET fields = ? WHERE id = ?", doc, id); err != nil {
		return errors.WrapStore("update", table, id, err)
	}
	return nil
}

// AttachmentFingerprints implements store.Store.
func (s *Store) AttachmentFingerprints(ctx context.Context, ownerID string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT length FROM attachments WHERE owner_id = ? ORDER BY seq", ownerID)
	if err != nil {
		return nil, errors.WrapStore("find", s.attachment.Table, ownerID, err)
	}
	defer rows.Close()

	lengths := []int64{}
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, errors.WrapStore("find", s.attachment.Table, ownerID, err)
		}
		lengths = append(lengths, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStore("find", s.attachment.Table, ownerID, err)
	}
	return lengths, nil
}

// UploadAttachment implements store.Store.
func (s *Store) UploadAttachment(ctx context.Context, ownerID string, a *records.Attachment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO attachments (id, owner_id, name, content_type, length, body) VALUES (?, ?, ?, ?, ?, ?)",
		id, ownerID, a.Name, attachments.ContentType(a), a.Fingerprint(), a.Body); err != nil {
		return "", errors.WrapStore("upload", s.attachment.Table, ownerID, err)
	}
	return id, nil
}

// DescribeLabels implements store.Store.
func (s *Store) DescribeLabels(ctx context.Context, table, field string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT label FROM picklists WHERE table_name = ? AND field = ? ORDER BY position", table, field)
	if err != nil {
		return nil, errors.WrapStore("describe", table, "", err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, errors.WrapStore("describe", table, "", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStore("describe", table, "", err)
	}
	return labels, nil
}

// IDs implements store.Purger.
func (s *Store) IDs(ctx context.Context, table string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id FROM records WHERE table_name = ? ORDER BY seq"
	args := []any{table}
	if table == s.attachment.Table {
		query = "SELECT id FROM attachments ORDER BY seq"
		args = nil
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapStore("find", table, "", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.WrapStore("find", table, "", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStore("find", table, "", err)
	}
	return ids, nil
}

// Delete implements store.Purger.
func (s *Store) Delete(ctx context.Context, table string, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.WrapStore("delete", table, "", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleted := 0
	for _, id := range ids {
		var res sql.Result
		if table == s.attachment.Table {
			res, err = tx.ExecContext(ctx, "DELETE FROM attachments WHERE id = ?", id)
		} else {
			res, err = tx.ExecContext(ctx, "DELETE FROM records WHERE table_name = ? AND id = ?", table, id)
		}
		if err != nil {
			return 0, errors.WrapStore("delete", table, id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, errors.WrapStore("delete", table, id, err)
		}
		deleted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.WrapStore("delete", table, "", err)
	}
	return deleted, nil
}

func encode(fields records.Fields) (string, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return "", errors.WrapParse("json", "", err)
	}
	return string(b), nil
}

func decode(doc string) (records.Fields, error) {
	fields := records.Fields{}
	if err := json.Unmarshal([]byte(doc), &fields); err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	return fields, nil
}
