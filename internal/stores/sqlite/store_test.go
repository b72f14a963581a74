package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/casesync/internal/stores/sqlite"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/store"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "nested", "casesync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesDatabase(t *testing.T) {
	s := openStore(t)
	_, err := os.Stat(s.Path())
	assert.NoError(t, err)
}

func TestCreateFindUpdate(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	id, err := s.Create(ctx, "Children__c", records.Fields{
		"Id":             "ignored",
		"Case_Number__c": "123",
		"Name":           "Ana",
		"County":         nil,
	})
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)

	_, err = s.Create(ctx, "Children__c", records.Fields{"Case_Number__c": "456", "Name": "Ben"})
	require.NoError(t, err)

	rows, err := s.Find(ctx, "Children__c", store.Eq{Field: "Case_Number__c", Value: "123"}, "Name", "County", "Missing")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ID)
	assert.Equal(t, records.Fields{"Name": "Ana", "County": nil, "Missing": nil}, rows[0].Fields)

	require.NoError(t, s.Update(ctx, "Children__c", id, records.Fields{"County": "Travis"}))
	rows, err = s.Find(ctx, "Children__c", store.Eq{Field: "Case_Number__c", Value: "123"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Travis", rows[0].Fields["County"])
	assert.Equal(t, "Ana", rows[0].Fields["Name"])

	all, err := s.Find(ctx, "Children__c", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := s.Find(ctx, "Siblings__c", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateMissingRow(t *testing.T) {
	err := openStore(t).Update(context.Background(), "Children__c", "nope", records.Fields{"Name": "x"})
	require.Error(t, err)
	assert.True(t, errors.IsStoreError(err))
	assert.True(t, errors.IsNotFound(err))
}

func TestFindWithPrefixConditions(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	for _, name := range [][2]string{{"Robert", "Smith"}, {"Bob", "Smithers"}, {"Alice", "Smith"}} {
		_, err := s.Create(ctx, "Contact", records.Fields{"FirstName": name[0], "LastName": name[1]})
		require.NoError(t, err)
	}

	cond := store.And{
		store.Or{
			store.Prefix{Field: "FirstName", Prefix: "bob"},
			store.Prefix{Field: "FirstName", Prefix: "r"},
		},
		store.Prefix{Field: "LastName", Prefix: "Smit"},
	}
	rows, err := s.Find(ctx, "Contact", cond, "FirstName")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Robert", rows[0].Fields["FirstName"])
	assert.Equal(t, "Bob", rows[1].Fields["FirstName"])
}

func TestAttachments(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	lengths, err := s.AttachmentFingerprints(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, lengths)

	_, err = s.UploadAttachment(ctx, "owner", &records.Attachment{Name: "a.jpg", Body: []byte("abcd"), Length: 1200})
	require.NoError(t, err)
	_, err = s.UploadAttachment(ctx, "owner", records.NewAttachment("b.jpg", []byte("xyz"), false))
	require.NoError(t, err)
	_, err = s.UploadAttachment(ctx, "other", records.NewAttachment("c.jpg", []byte("x"), false))
	require.NoError(t, err)

	lengths, err = s.AttachmentFingerprints(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, []int64{1200, 3}, lengths)
}

func TestLabels(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	labels, err := s.DescribeLabels(ctx, "Children__c", "Child_s_Nationality__c")
	require.NoError(t, err)
	assert.Empty(t, labels)

	require.NoError(t, s.SetLabels(ctx, "Children__c", "Child_s_Nationality__c", []string{"French", "German"}))
	require.NoError(t, s.SetLabels(ctx, "Children__c", "Child_s_Nationality__c", []string{"Irish", "French", "German"}))

	labels, err = s.DescribeLabels(ctx, "Children__c", "Child_s_Nationality__c")
	require.NoError(t, err)
	assert.Equal(t, []string{"Irish", "French", "German"}, labels)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	var created []string
	for _, name := range []string{"Ana", "Ben", "Cal"} {
		id, err := s.Create(ctx, "Children__c", records.Fields{"Name": name})
		require.NoError(t, err)
		created = append(created, id)
	}
	_, err := s.Create(ctx, "Siblings__c", records.Fields{"Name": "group"})
	require.NoError(t, err)
	_, err = s.UploadAttachment(ctx, created[0], records.NewAttachment("a.jpg", []byte("abcd"), false))
	require.NoError(t, err)

	ids, err := s.IDs(ctx, "Children__c")
	require.NoError(t, err)
	assert.Equal(t, created, ids)

	deleted, err := s.Delete(ctx, "Children__c", append(ids[:2:2], "missing"))
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	ids, err = s.IDs(ctx, "Children__c")
	require.NoError(t, err)
	assert.Equal(t, created[2:], ids)

	groups, err := s.IDs(ctx, "Siblings__c")
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	table := records.DefaultSchemas().Attachment.Table
	files, err := s.IDs(ctx, table)
	require.NoError(t, err)
	require.Len(t, files, 1)
	deleted, err = s.Delete(ctx, table, files)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	lengths, err := s.AttachmentFingerprints(ctx, created[0])
	require.NoError(t, err)
	assert.Empty(t, lengths)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "casesync.db")

	s, err := sqlite.Open(path)
	require.NoError(t, err)
	id, err := s.Create(ctx, "Children__c", records.Fields{"Name": "Ana"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = sqlite.Open(path)
	require.NoError(t, err)
	defer s.Close()

	ids, err := s.IDs(ctx, "Children__c")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)
}
