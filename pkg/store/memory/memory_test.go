package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/store"
	"github.com/agentstation/casesync/pkg/store/memory"
)

func TestCreateFindUpdate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	id, err := s.Create(ctx, "Children__c", records.Fields{"Case_Number__c": "123", "Name": "Ana", "County": ""})
	require.NoError(t, err)
	assert.Equal(t, "children-1", id)

	rows, err := s.Find(ctx, "Children__c", store.Eq{Field: "Case_Number__c", Value: "123"}, "Name", "Missing")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, records.Fields{"Name": "Ana", "Missing": nil}, rows[0].Fields)

	require.NoError(t, s.Update(ctx, "Children__c", id, records.Fields{"County": "Travis"}))
	row, ok := s.Get("Children__c", id)
	require.True(t, ok)
	assert.Equal(t, "Travis", row["County"])

	err = s.Update(ctx, "Children__c", "nope", records.Fields{"County": "x"})
	assert.True(t, errors.IsStoreError(err))
	assert.True(t, errors.IsNotFound(err))

	assert.Len(t, s.CallsFor("find"), 1)
	assert.Len(t, s.CallsFor("update"), 2)
}

func TestAttachments(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.SeedAttachment("owner", &records.Attachment{Length: 1200})

	_, err := s.UploadAttachment(ctx, "owner", records.NewAttachment("a.jpg", []byte("abcd"), false))
	require.NoError(t, err)

	lengths, err := s.AttachmentFingerprints(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, []int64{1200, 4}, lengths)
	assert.Len(t, s.Attachments("owner"), 2)
}

func TestFault(t *testing.T) {
	ctx := context.Background()
	s := memory.New(memory.WithFault(func(op, table string, fields records.Fields) error {
		if op == "create" && fields.String("Name") == "Ben" {
			return assert.AnError
		}
		return nil
	}))

	_, err := s.Create(ctx, "Children__c", records.Fields{"Name": "Ana"})
	require.NoError(t, err)
	_, err = s.Create(ctx, "Children__c", records.Fields{"Name": "Ben"})
	require.Error(t, err)
	assert.True(t, errors.IsStoreError(err))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Len(t, s.Rows("Children__c"), 1)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := memory.New().Find(ctx, "Contact", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	a := s.Seed("Contact", records.Fields{"LastName": "A"})
	b := s.Seed("Contact", records.Fields{"LastName": "B"})
	s.SeedAttachment("x", &records.Attachment{Length: 1})
	s.SeedAttachment("x", &records.Attachment{Length: 2})

	ids, err := s.IDs(ctx, "Contact")
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, ids)

	n, err := s.Delete(ctx, "Contact", []string{a, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, s.Rows("Contact"), 1)

	owners, err := s.IDs(ctx, "Attachment")
	require.NoError(t, err)
	n, err = s.Delete(ctx, "Attachment", owners)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, s.Attachments("x"))
}
