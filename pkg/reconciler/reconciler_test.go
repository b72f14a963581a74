package reconciler_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/reconciler"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/report"
	"github.com/agentstation/casesync/pkg/store"
	"github.com/agentstation/casesync/pkg/store/memory"
)

var (
	fixedNow = utc.New(time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC))
	laterNow = utc.New(time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC))
	schemas  = records.DefaultSchemas()
)

func newChild(now utc.Time, caseNumber, name string) *records.Person {
	p := records.NewPersonAt(now)
	p.SetFields(records.Fields{
		"Case_Number__c":          caseNumber,
		"Name":                    name,
		"Link_to_Child_s_Page__c": "https://example.org/" + caseNumber,
	})
	return p
}

// reportBuffer exposes the flushed report text.
type reportBuffer struct {
	w   *report.Writer
	buf *bytes.Buffer
}

func (rb *reportBuffer) String() string {
	_ = rb.w.Flush()
	return rb.buf.String()
}

func newSetup(t *testing.T, opts ...reconciler.Option) (*reconciler.Reconciler, *memory.Store, *reportBuffer) {
	t.Helper()
	s := memory.New()
	rb := &reportBuffer{buf: &bytes.Buffer{}}
	rb.w = report.New(rb.buf)
	t.Cleanup(func() { _ = rb.w.Close() })

	r, err := reconciler.New(s, append([]reconciler.Option{reconciler.WithReporter(rb.w)}, opts...)...)
	require.NoError(t, err)
	return r, s, rb
}

func TestIdempotence(t *testing.T) {
	ctx := context.Background()
	r, s, buf := newSetup(t)

	p := newChild(fixedNow, "100", "Ana")
	first, err := r.UpsertPerson(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, reconciler.ActionCreated, first.Action)
	assert.True(t, first.Reported)
	assert.NotEmpty(t, p.ID())

	second, err := r.UpsertPerson(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, reconciler.ActionUnchanged, second.Action)
	assert.False(t, second.Changeset.Reportable(schemas.Person.TouchField))
	assert.False(t, second.Reported)
	assert.Equal(t, first.ID, second.ID)

	// a fresh scrape later on only differs in its touch field
	rescrape := newChild(laterNow, "100", "Ana")
	third, err := r.UpsertPerson(ctx, rescrape)
	require.NoError(t, err)
	assert.Equal(t, reconciler.ActionUnchanged, third.Action)
	assert.True(t, third.Changeset.IsNoop(schemas.Person.TouchField))
	assert.Empty(t, third.Written)

	assert.Len(t, s.CallsFor("create"), 1)
	assert.Empty(t, s.CallsFor("update"))
	assert.Equal(t, 1, strings.Count(buf.String(), "ADD CHILD"))
	assert.NotContains(t, buf.String(), "UPDATE CHILD")
}

func TestNullToValueOnlyWrite(t *testing.T) {
	ctx := context.Background()
	r, s, buf := newSetup(t)

	id := s.Seed(schemas.Person.Table, records.Fields{
		"Case_Number__c":          "200",
		"Name":                    "Ben",
		"Link_to_Child_s_Page__c": "https://example.org/200",
		"Recruitment_Update__c":   records.TouchStamp(fixedNow),
		"A":                       "",
		"B":                       "x",
	})

	p := newChild(fixedNow, "200", "Ben")
	p.SetFields(records.Fields{"A": "y", "B": "z"})

	out, err := r.UpsertPerson(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID())
	assert.Equal(t, reconciler.ActionUpdated, out.Action)
	assert.Equal(t, []string{"A", "B"}, out.Changeset.Fields())
	assert.Equal(t, records.Fields{"A": "y"}, out.Written)

	updates := s.CallsFor("update")
	require.Len(t, updates, 1)
	assert.Equal(t, records.Fields{"A": "y"}, updates[0].Fields)

	row, _ := s.Get(schemas.Person.Table, id)
	assert.Equal(t, "y", row["A"])
	assert.Equal(t, "x", row["B"])

	assert.Contains(t, buf.String(), "UPDATE CHILD\n")
	assert.Contains(t, buf.String(), "200 - Ben\n")
	assert.Contains(t, buf.String(), "A: (none), y\n")
	assert.Contains(t, buf.String(), "B: x, z\n")
}

func TestNoopIsUnreportedButStillFillsEmptyTouch(t *testing.T) {
	ctx := context.Background()
	r, s, buf := newSetup(t)

	id := s.Seed(schemas.Person.Table, records.Fields{
		"Case_Number__c":          "300",
		"Name":                    "Cal",
		"Link_to_Child_s_Page__c": "https://example.org/300",
	})

	out, err := r.UpsertPerson(ctx, newChild(fixedNow, "300", "Cal"))
	require.NoError(t, err)
	assert.True(t, out.Changeset.IsNoop(schemas.Person.TouchField))
	assert.False(t, out.Reported)
	assert.Equal(t, records.Fields{"Recruitment_Update__c": records.TouchStamp(fixedNow)}, out.Written)
	assert.Empty(t, buf.String())

	row, _ := s.Get(schemas.Person.Table, id)
	assert.Equal(t, records.TouchStamp(fixedNow), row["Recruitment_Update__c"])
}

func TestBirthdateTolerance(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reported bool
	}{
		{"90 days", "2015-08-30", false},
		{"91 days", "2015-08-31", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			r, s, _ := newSetup(t)
			s.Seed(schemas.Person.Table, records.Fields{
				"Case_Number__c":          "400",
				"Name":                    "Dee",
				"Link_to_Child_s_Page__c": "https://example.org/400",
				"Recruitment_Update__c":   records.TouchStamp(fixedNow),
				"Child_s_Birthdate__c":    "2015-06-01",
			})

			p := newChild(fixedNow, "400", "Dee")
			p.Set("Child_s_Birthdate__c", tt.incoming)

			out, err := r.UpsertPerson(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, tt.reported, out.Reported)
			assert.Empty(t, out.Written)
			assert.Empty(t, s.CallsFor("update"))
		})
	}
}

func TestPicklistNormalization(t *testing.T) {
	ctx := context.Background()
	r, s, _ := newSetup(t,
		reconciler.WithPicklistLabels("Child_s_Nationality__c", []string{"French", "German"}))

	matched := newChild(fixedNow, "500", "Eve")
	matched.Set("Child_s_Nationality__c", []string{"French Canadian", "German"})
	_, err := r.UpsertPerson(ctx, matched)
	require.NoError(t, err)

	unknown := newChild(fixedNow, "501", "Fay")
	unknown.Set("Child_s_Nationality__c", []string{"???"})
	_, err = r.UpsertPerson(ctx, unknown)
	require.NoError(t, err)

	row, _ := s.Get(schemas.Person.Table, matched.ID())
	assert.Equal(t, "French;German", row["Child_s_Nationality__c"])
	row, _ = s.Get(schemas.Person.Table, unknown.ID())
	assert.Equal(t, "Unknown", row["Child_s_Nationality__c"])
}

func newGroup(t *testing.T, caseNumber string, members ...*records.Person) *records.Group {
	t.Helper()
	g := records.NewGroupAt(fixedNow)
	g.SetFields(records.Fields{
		"Case_Number__c":        caseNumber,
		"Name":                  "Siblings " + caseNumber,
		"Children_s_Webpage__c": "https://example.org/group/" + caseNumber,
	})
	for _, m := range members {
		require.NoError(t, g.AddMember(m))
	}
	return g
}

func TestGroupCrossReferenceOrdering(t *testing.T) {
	ctx := context.Background()
	r, s, buf := newSetup(t)

	// P2 already exists, so ids are not handed out in member order
	p2ID := s.Seed(schemas.Person.Table, records.Fields{"Case_Number__c": "602", "Name": "Ben"})
	s.Seed(schemas.Person.Table, records.Fields{"Case_Number__c": "999", "Name": "Other"})

	p1 := newChild(fixedNow, "601", "Ana")
	p2 := newChild(fixedNow, "602", "Ben")
	p3 := newChild(fixedNow, "603", "Cal")
	g := newGroup(t, "600", p1, p2, p3)

	out, err := r.UpsertGroup(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, reconciler.ActionCreated, out.Action)
	require.Len(t, out.Members, 3)
	assert.Equal(t, p2ID, p2.ID())

	row, ok := s.Get(schemas.Group.Table, g.ID())
	require.True(t, ok)
	assert.Equal(t, p1.ID(), row["Child_1_First_Name__c"])
	assert.Equal(t, p2.ID(), row["Child_2_First_Name__c"])
	assert.Equal(t, p3.ID(), row["Child_3_First_Name__c"])

	p1Row, _ := s.Get(schemas.Person.Table, p1.ID())
	assert.Equal(t, "Ben, Cal", p1Row["Child_s_Siblings__c"])
	p3Row, _ := s.Get(schemas.Person.Table, p3.ID())
	assert.Equal(t, "Ana, Ben", p3Row["Child_s_Siblings__c"])

	assert.Contains(t, buf.String(), "ADD SIBLING GROUP\n")

	// members are written before their group
	var tables []string
	for _, c := range s.CallsFor("create") {
		tables = append(tables, c.Table)
	}
	assert.Equal(t, []string{"Children__c", "Children__c", "Sibling_Group__c"}, tables)

	// a second run converges
	again, err := r.UpsertGroup(ctx, g)
	require.NoError(t, err)
	assert.False(t, again.Reported)
	assert.Equal(t, reconciler.ActionUnchanged, again.Action)
}

func TestGroupMemberFailureIsPartial(t *testing.T) {
	ctx := context.Background()
	s := memory.New(memory.WithFault(func(op, table string, fields records.Fields) error {
		if op == "create" && table == "Children__c" && fields.String("Name") == "Ben" {
			return stderrors.New("insufficient access")
		}
		return nil
	}))
	r, err := reconciler.New(s)
	require.NoError(t, err)

	p1 := newChild(fixedNow, "701", "Ana")
	p2 := newChild(fixedNow, "702", "Ben")
	p3 := newChild(fixedNow, "703", "Cal")
	g := newGroup(t, "700", p1, p2, p3)

	out, err := r.UpsertGroup(ctx, g)
	require.Error(t, err)
	assert.True(t, errors.IsStoreError(err))

	var entityErr *errors.EntityError
	require.ErrorAs(t, err, &entityErr)
	assert.Equal(t, "702", entityErr.CaseNumber)

	require.NotNil(t, out)
	assert.Equal(t, reconciler.ActionCreated, out.Action)
	assert.Equal(t, reconciler.ActionFailed, out.Members[1].Action)

	row, ok := s.Get(schemas.Group.Table, g.ID())
	require.True(t, ok)
	assert.Equal(t, p1.ID(), row["Child_1_First_Name__c"])
	assert.NotContains(t, row, "Child_2_First_Name__c")
	assert.Equal(t, p3.ID(), row["Child_3_First_Name__c"])
}

func TestContactResolution(t *testing.T) {
	ctx := context.Background()
	r, s, _ := newSetup(t, reconciler.WithContactAccount("001ACC"))

	worker := func() *records.Contact {
		return records.NewContact(records.Fields{
			records.FirstName:   "Bob",
			records.LastName:    "Smithers",
			records.MailingCity: "Austin",
		})
	}

	a := newChild(fixedNow, "800", "Ana")
	a.Contact = worker()
	_, err := r.UpsertPerson(ctx, a)
	require.NoError(t, err)

	b := newChild(fixedNow, "801", "Ben")
	b.Contact = worker()
	_, err = r.UpsertPerson(ctx, b)
	require.NoError(t, err)

	contactRows := s.Rows("Contact")
	require.Len(t, contactRows, 1)
	assert.Equal(t, "001ACC", contactRows[0].Fields["AccountId"])

	rowA, _ := s.Get(schemas.Person.Table, a.ID())
	rowB, _ := s.Get(schemas.Person.Table, b.ID())
	assert.Equal(t, contactRows[0].ID, rowA["Case_Worker_Contact__c"])
	assert.Equal(t, contactRows[0].ID, rowB["Case_Worker_Contact__c"])

	// rerun with the contact still embedded converges
	a2 := newChild(fixedNow, "800", "Ana")
	a2.Contact = worker()
	out, err := r.UpsertPerson(ctx, a2)
	require.NoError(t, err)
	assert.Equal(t, reconciler.ActionUnchanged, out.Action)
}

func TestAmbiguousContactTakesFirst(t *testing.T) {
	logs := logging.CaptureDefault(t)
	ctx := context.Background()
	r, s, _ := newSetup(t)

	worker := records.Fields{
		records.FirstName:   "Bob",
		records.LastName:    "Smithers",
		records.MailingCity: "Austin",
	}
	first := s.Seed("Contact", worker.Clone())
	s.Seed("Contact", worker.Clone())

	p := newChild(fixedNow, "850", "Ana")
	p.Contact = records.NewContact(worker.Clone())
	_, err := r.UpsertPerson(ctx, p)
	require.NoError(t, err)

	row, _ := s.Get(schemas.Person.Table, p.ID())
	assert.Equal(t, first, row["Case_Worker_Contact__c"])
	assert.Len(t, s.Rows("Contact"), 2)

	warnings := logs.Messages("Contact matched several records, using the first")
	require.Len(t, warnings, 1)
	assert.Equal(t, "warn", warnings[0]["level"])
	assert.Equal(t, "850", warnings[0]["case_number"])
	assert.Equal(t, float64(2), warnings[0]["matches"])
	assert.Equal(t, first, warnings[0]["contact"])
}

func TestContactValidationAbortsEntity(t *testing.T) {
	ctx := context.Background()
	r, s, _ := newSetup(t)

	p := newChild(fixedNow, "900", "Ana")
	p.Contact = records.NewContact(records.Fields{records.LastName: "Smith"})

	_, err := r.UpsertPerson(ctx, p)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Empty(t, s.CallsFor("create"))
}

func TestAttachmentsAndPortrait(t *testing.T) {
	ctx := context.Background()
	r, s, _ := newSetup(t)

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 'p', 'o', 'r', 't'}
	p := newChild(fixedNow, "1000", "Ana")
	p.Attachments = []*records.Attachment{
		records.NewAttachment("portrait.jpg", jpeg, true),
		records.NewAttachment("extra.jpg", []byte("second image"), false),
	}

	out, err := r.UpsertPerson(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Uploaded)
	assert.Len(t, s.Attachments(p.ID()), 2)

	row, _ := s.Get(schemas.Person.Table, p.ID())
	photo, _ := row["Child_s_Photo__c"].(string)
	assert.True(t, strings.HasPrefix(photo, `<img alt="Ana" src="data:image/jpeg;base64,`))

	again, err := r.UpsertPerson(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Uploaded)
	assert.Len(t, s.CallsFor("upload"), 2)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	r, s, _ := newSetup(t)

	tests := []struct {
		name   string
		entity records.Entity
	}{
		{"contact is not upsertable", records.NewContact(records.Fields{records.FirstName: "A"})},
		{"person with group record", &records.Person{Record: records.NewRecord(records.KindGroup, "Sibling_Group__c", nil)}},
		{"person in wrong table", &records.Person{Record: records.NewRecord(records.KindPerson, "Contact", nil)}},
		{"missing case number", newChild(fixedNow, "", "Ana")},
		{"nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Upsert(ctx, tt.entity)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
		})
	}
	assert.Empty(t, s.Calls())
}

func TestStoreErrorAbortsEntity(t *testing.T) {
	ctx := context.Background()
	s := memory.New(memory.WithFault(func(op, _ string, _ records.Fields) error {
		if op == "find" {
			return &errors.APIError{Service: "crm", StatusCode: 503, Message: "unavailable"}
		}
		return nil
	}))
	r, err := reconciler.New(s)
	require.NoError(t, err)

	out, err := r.UpsertPerson(ctx, newChild(fixedNow, "1100", "Ana"))
	require.Error(t, err)
	assert.True(t, errors.IsStoreError(err))
	assert.True(t, errors.IsStoreUnavailable(err))
	assert.Equal(t, reconciler.ActionFailed, out.Action)
	assert.Empty(t, s.CallsFor("create"))
}

func TestDryRunLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	dry := store.NewDryRun(inner)
	r, err := reconciler.New(dry)
	require.NoError(t, err)

	p1 := newChild(fixedNow, "1201", "Ana")
	p2 := newChild(fixedNow, "1202", "Ben")
	g := newGroup(t, "1200", p1, p2)
	g.Contact = records.NewContact(records.Fields{records.FirstName: "Bill", records.LastName: "Wu"})

	out, err := r.UpsertGroup(ctx, g)
	require.NoError(t, err)
	assert.True(t, store.IsSynthetic(out.ID))
	assert.Empty(t, inner.CallsFor("create"))
	assert.Len(t, dry.Writes(), 4)
}

func TestNewRejectsNilStore(t *testing.T) {
	_, err := reconciler.New(nil)
	assert.True(t, errors.IsValidationError(err))

	_, err = reconciler.New(memory.New(), reconciler.WithDateWindow(-time.Hour))
	assert.True(t, errors.IsValidationError(err))
}

func TestPicklistWithoutLabelsIsUnknown(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		opts []reconciler.Option
	}{
		{name: "no labels registered"},
		{name: "empty label set", opts: []reconciler.Option{
			reconciler.WithPicklistLabels("Child_s_Nationality__c", nil),
		}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, s, _ := newSetup(t, tt.opts...)

			p := newChild(fixedNow, fmt.Sprintf("130%d", i), "Gus")
			p.Set("Child_s_Nationality__c", []string{"French Canadian"})
			_, err := r.UpsertPerson(ctx, p)
			require.NoError(t, err)

			row, _ := s.Get(schemas.Person.Table, p.ID())
			assert.Equal(t, "Unknown", row["Child_s_Nationality__c"])
		})
	}
}
