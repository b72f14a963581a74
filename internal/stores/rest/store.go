// Package rest implements the remote store over a Salesforce-style REST API:
// SOQL queries for lookups, sObject endpoints for writes and the describe
// endpoint for picklist labels.
package rest

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"github.com/agentstation/casesync/internal/transport"
	"github.com/agentstation/casesync/pkg/attachments"
	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/store"
)

// Compile-time interface checks.
var (
	_ store.Store  = (*Store)(nil)
	_ store.Purger = (*Store)(nil)
)

// Store talks to one org instance.
type Store struct {
	client     *transport.Client
	apiVersion string
	attachment records.AttachmentSchema
}

// Option configures a Store.
type Option func(*Store)

// WithAPIVersion sets the REST API version, e.g. "v58.0".
func WithAPIVersion(version string) Option {
	return func(s *Store) {
		if version != "" {
			s.apiVersion = version
		}
	}
}

// WithAttachmentSchema overrides the attachment table layout.
func WithAttachmentSchema(schema records.AttachmentSchema) Option {
	return func(s *Store) {
		s.attachment = schema
	}
}

// New creates a store on top of client.
func New(client *transport.Client, opts ...Option) *Store {
	s := &Store{
		client:     client,
		apiVersion: constants.DefaultAPIVersion,
		attachment: records.DefaultSchemas().Attachment,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) path(parts ...string) string {
	return "/services/data/" + s.apiVersion + "/" + strings.Join(parts, "/")
}

type queryResult struct {
	TotalSize      int              `json:"totalSize"`
	Done           bool             `json:"done"`
	NextRecordsURL string           `json:"nextRecordsUrl"`
	Records        []map[string]any `json:"records"`
}

// query runs a SOQL query and follows pagination.
func (s *Store) query(ctx context.Context, soql string) ([]store.Row, error) {
	logging.FromContext(ctx).Debug().Str("soql", soql).Msg("Query")

	var rows []store.Row
	next := s.path("query") + "?q=" + url.QueryEscape(soql)
	for next != "" {
		var page queryResult
		if err := s.client.Get(ctx, next, &page); err != nil {
			return nil, err
		}
		for _, rec := range page.Records {
			delete(rec, "attributes")
			id := cast.ToString(rec[store.IDField])
			delete(rec, store.IDField)
			rows = append(rows, store.Row{ID: id, Fields: records.Fields(rec)})
		}
		next = ""
		if !page.Done {
			next = page.NextRecordsURL
		}
	}
	return rows, nil
}

// Find implements store.Store.
func (s *Store) Find(ctx context.Context, table string, cond store.Condition, fields ...string) ([]store.Row, error) {
	soql, err := Select(table, cond, fields...)
	if err != nil {
		return nil, errors.WrapStore("find", table, "", err)
	}
	rows, err := s.query(ctx, soql)
	if err != nil {
		return nil, errors.WrapStore("find", table, "", err)
	}
	if len(fields) > 0 {
		for i := range rows {
			rows[i].Fields = store.Project(rows[i].Fields, fields)
		}
	}
	return rows, nil
}

type saveResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Errors  []struct {
		StatusCode string `json:"statusCode"`
		Message    string `json:"message"`
	} `json:"errors"`
}

func (r saveResult) err() error {
	if r.Success {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.StatusCode+": "+e.Message)
	}
	return fmt.Errorf("save rejected: %s", strings.Join(msgs, "; "))
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, table string, fields records.Fields) (string, error) {
	var res saveResult
	if err := s.client.Do(ctx, http.MethodPost, s.path("sobjects", table)+"/", payload(fields), &res); err != nil {
		return "", errors.WrapStore("create", table, "", err)
	}
	if err := res.err(); err != nil {
		return "", errors.WrapStore("create", table, "", err)
	}
	return res.ID, nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, table, id string, fields records.Fields) error {
	if err := s.client.Do(ctx, http.MethodPatch, s.path("sobjects", table, id), payload(fields), nil); err != nil {
		return errors.WrapStore("update", table, id, err)
	}
	return nil
}

// AttachmentFingerprints implements store.Store.
func (s *Store) AttachmentFingerprints(ctx context.Context, ownerID string) ([]int64, error) {
	table := s.attachment.Table
	soql, err := Select(table, store.Eq{Field: s.attachment.OwnerField, Value: ownerID}, s.attachment.LengthField)
	if err != nil {
		return nil, errors.WrapStore("find", table, ownerID, err)
	}
	rows, err := s.query(ctx, soql)
	if err != nil {
		return nil, errors.WrapStore("find", table, ownerID, err)
	}
	lengths := make([]int64, 0, len(rows))
	for _, row := range rows {
		lengths = append(lengths, cast.ToInt64(row.Fields.Get(s.attachment.LengthField)))
	}
	return lengths, nil
}

// UploadAttachment implements store.Store.
func (s *Store) UploadAttachment(ctx context.Context, ownerID string, a *records.Attachment) (string, error) {
	table := s.attachment.Table
	body := map[string]any{
		s.attachment.OwnerField:       ownerID,
		s.attachment.NameField:        a.Name,
		s.attachment.BodyField:        base64.StdEncoding.EncodeToString(a.Body),
		s.attachment.ContentTypeField: attachments.ContentType(a),
	}
	var res saveResult
	if err := s.client.Do(ctx, http.MethodPost, s.path("sobjects", table)+"/", body, &res); err != nil {
		return "", errors.WrapStore("upload", table, ownerID, err)
	}
	if err := res.err(); err != nil {
		return "", errors.WrapStore("upload", table, ownerID, err)
	}
	return res.ID, nil
}

type describeResult struct {
	Fields []struct {
		Name           string `json:"name"`
		PicklistValues []struct {
			Label  string `json:"label"`
			Value  string `json:"value"`
			Active bool   `json:"active"`
		} `json:"picklistValues"`
	} `json:"fields"`
}

// DescribeLabels implements store.Store.
func (s *Store) DescribeLabels(ctx context.Context, table, field string) ([]string, error) {
	var res describeResult
	if err := s.client.Get(ctx, s.path("sobjects", table, "describe"), &res); err != nil {
		return nil, errors.WrapStore("describe", table, "", err)
	}
	for _, f := range res.Fields {
		if f.Name != field {
			continue
		}
		labels := make([]string, 0, len(f.PicklistValues))
		for _, v := range f.PicklistValues {
			if v.Active {
				labels = append(labels, v.Label)
			}
		}
		return labels, nil
	}
	return nil, errors.WrapStore("describe", table, "", errors.NewNotFoundError("field", field))
}

// IDs implements store.Purger.
func (s *Store) IDs(ctx context.Context, table string) ([]string, error) {
	soql, err := Select(table, nil)
	if err != nil {
		return nil, errors.WrapStore("find", table, "", err)
	}
	rows, err := s.query(ctx, soql)
	if err != nil {
		return nil, errors.WrapStore("find", table, "", err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// Delete implements store.Purger through the composite collection endpoint.
// Records the store refuses to delete are not counted.
func (s *Store) Delete(ctx context.Context, table string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	logger := logging.FromContext(ctx)

	var results []saveResult
	path := s.path("composite", "sobjects") + "?allOrNone=false&ids=" + url.QueryEscape(strings.Join(ids, ","))
	if err := s.client.Do(ctx, http.MethodDelete, path, nil, &results); err != nil {
		return 0, errors.WrapStore("delete", table, "", err)
	}
	deleted := 0
	for _, r := range results {
		if err := r.err(); err != nil {
			logger.Warn().Err(err).Str("id", r.ID).Msg("Delete rejected")
			continue
		}
		deleted++
	}
	return deleted, nil
}

// payload drops the Id column and serializes list values for the wire.
func payload(fields records.Fields) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == store.IDField {
			continue
		}
		switch val := v.(type) {
		case []string:
			out[k] = strings.Join(val, constants.PicklistDelimiter)
		default:
			out[k] = val
		}
	}
	return out
}
