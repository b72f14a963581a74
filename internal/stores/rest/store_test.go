package rest_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/casesync/internal/stores/rest"
	"github.com/agentstation/casesync/internal/transport"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/store"
)

const base = "/services/data/v58.0"

func newStore(t *testing.T, handler http.HandlerFunc) *rest.Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := transport.New(srv.URL, "session", transport.WithBackoff(time.Millisecond, time.Millisecond))
	return rest.New(client)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestFindFollowsPagination(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer session", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case base + "/query":
			assert.Equal(t, "SELECT Id, Name, Web__c FROM Children__c WHERE Case_Number__c = '42'", r.URL.Query().Get("q"))
			writeJSON(t, w, http.StatusOK, map[string]any{
				"totalSize":      2,
				"done":           false,
				"nextRecordsUrl": base + "/query/01g-2000",
				"records": []map[string]any{
					{"attributes": map[string]any{"type": "Children__c"}, "Id": "a01", "Name": "Ana"},
				},
			})
		case base + "/query/01g-2000":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"totalSize": 2,
				"done":      true,
				"records": []map[string]any{
					{"attributes": map[string]any{"type": "Children__c"}, "Id": "a02", "Name": "Ana", "Web__c": true},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	rows, err := s.Find(context.Background(), "Children__c",
		store.Eq{Field: "Case_Number__c", Value: "42"}, "Name", "Web__c")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a01", rows[0].ID)
	assert.Equal(t, records.Fields{"Name": "Ana", "Web__c": nil}, rows[0].Fields)
	assert.Equal(t, true, rows[1].Fields["Web__c"])
}

func TestCreateAndUpdate(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "Id")

		switch {
		case r.Method == http.MethodPost && r.URL.Path == base+"/sobjects/Children__c/":
			assert.Equal(t, "French;German", body["Child_s_Nationality__c"])
			writeJSON(t, w, http.StatusCreated, map[string]any{"id": "a01", "success": true, "errors": []any{}})
		case r.Method == http.MethodPatch && r.URL.Path == base+"/sobjects/Children__c/a01":
			assert.Equal(t, map[string]any{"County__c": "Travis"}, body)
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	ctx := context.Background()
	id, err := s.Create(ctx, "Children__c", records.Fields{
		"Id":                     "ignored",
		"Name":                   "Ana",
		"Child_s_Nationality__c": []string{"French", "German"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a01", id)

	require.NoError(t, s.Update(ctx, "Children__c", id, records.Fields{"County__c": "Travis"}))
}

func TestCreateIsNotResentAfterGatewayError(t *testing.T) {
	var inserted atomic.Int32
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		// the insert lands, the gateway in front of it still answers 502
		if inserted.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(t, w, http.StatusCreated, map[string]any{"id": "a02", "success": true, "errors": []any{}})
	})

	_, err := s.Create(context.Background(), "Children__c", records.Fields{"Name": "Ana"})
	require.Error(t, err)
	assert.True(t, errors.IsStoreError(err))
	assert.True(t, errors.IsStoreUnavailable(err))
	assert.Equal(t, int32(1), inserted.Load())
}

func TestCreateRejected(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, []map[string]string{
			{"message": "Case Number: value too long", "errorCode": "STRING_TOO_LONG"},
		})
	})

	_, err := s.Create(context.Background(), "Children__c", records.Fields{"Name": "Ana"})
	require.Error(t, err)
	assert.True(t, errors.IsStoreError(err))

	var storeErr *errors.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "create", storeErr.Operation)

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "STRING_TOO_LONG")
}

func TestAttachments(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case base + "/query":
			assert.Equal(t, "SELECT Id, BodyLength FROM Attachment WHERE ParentId = 'a01'", r.URL.Query().Get("q"))
			writeJSON(t, w, http.StatusOK, map[string]any{
				"done": true,
				"records": []map[string]any{
					{"Id": "00P1", "BodyLength": 1200},
					{"Id": "00P2", "BodyLength": 3400},
				},
			})
		case base + "/sobjects/Attachment/":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a01", body["ParentId"])
			assert.Equal(t, "portrait.jpg", body["Name"])
			assert.Equal(t, base64.StdEncoding.EncodeToString(jpeg), body["Body"])
			assert.Equal(t, "image/jpeg", body["ContentType"])
			writeJSON(t, w, http.StatusCreated, map[string]any{"id": "00P3", "success": true})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	ctx := context.Background()
	lengths, err := s.AttachmentFingerprints(ctx, "a01")
	require.NoError(t, err)
	assert.Equal(t, []int64{1200, 3400}, lengths)

	id, err := s.UploadAttachment(ctx, "a01", records.NewAttachment("portrait.jpg", jpeg, true))
	require.NoError(t, err)
	assert.Equal(t, "00P3", id)
}

func TestDescribeLabels(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, base+"/sobjects/Children__c/describe", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"fields": []map[string]any{
				{"name": "Name"},
				{"name": "Child_s_Nationality__c", "picklistValues": []map[string]any{
					{"label": "French", "value": "French", "active": true},
					{"label": "Retired", "value": "Retired", "active": false},
					{"label": "German", "value": "German", "active": true},
				}},
			},
		})
	})

	ctx := context.Background()
	labels, err := s.DescribeLabels(ctx, "Children__c", "Child_s_Nationality__c")
	require.NoError(t, err)
	assert.Equal(t, []string{"French", "German"}, labels)

	_, err = s.DescribeLabels(ctx, "Children__c", "Missing__c")
	assert.True(t, errors.IsNotFound(err))
}

func TestPurge(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case base + "/query":
			assert.Equal(t, "SELECT Id FROM Contact", r.URL.Query().Get("q"))
			writeJSON(t, w, http.StatusOK, map[string]any{
				"done":    true,
				"records": []map[string]any{{"Id": "003A"}, {"Id": "003B"}},
			})
		case base + "/composite/sobjects":
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "false", r.URL.Query().Get("allOrNone"))
			assert.Equal(t, []string{"003A", "003B"}, strings.Split(r.URL.Query().Get("ids"), ","))
			writeJSON(t, w, http.StatusOK, []map[string]any{
				{"id": "003A", "success": true},
				{"id": "003B", "success": false, "errors": []map[string]any{
					{"statusCode": "ENTITY_IS_DELETED", "message": "entity is deleted"},
				}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	ctx := context.Background()
	ids, err := s.IDs(ctx, "Contact")
	require.NoError(t, err)
	assert.Equal(t, []string{"003A", "003B"}, ids)

	n, err := s.Delete(ctx, "Contact", ids)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
