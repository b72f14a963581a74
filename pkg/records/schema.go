package records

import "fmt"

// Schema describes how a kind of record is laid out in the remote store.
type Schema struct {
	Kind  Kind
	Table string
	// Label is the entity name used in change report banners.
	Label string

	CaseNumberField string
	NameField       string
	LinkField       string
	// TouchField is the bookkeeping timestamp that changes on every scrape.
	TouchField string
	// Excluded fields are never diffed (they change on every listing).
	Excluded []string
	// BirthdateField is compared with a date window instead of strict equality.
	BirthdateField string
	// PicklistFields hold multi-value free text mapped onto canonical labels.
	PicklistFields []string
	// SummarizedFields are long free text reported as "changed" only.
	SummarizedFields []string
	// ContactField references the resolved contact id.
	ContactField string
	// PhotoField receives the rendered primary portrait.
	PhotoField string
	// MemberRefFormat is a printf pattern for positional member references (groups).
	MemberRefFormat string
	// SiblingNoteField lists the names of the other members of a person's group.
	SiblingNoteField string
	// AccountField receives the configured account id on contact creation.
	AccountField string
}

// MemberRef returns the cross-reference field for the member at 1-based position i.
func (s Schema) MemberRef(i int) string {
	return fmt.Sprintf(s.MemberRefFormat, i)
}

// IsSummarized reports whether a field is reported as "changed" rather than printed.
func (s Schema) IsSummarized(field string) bool {
	for _, f := range s.SummarizedFields {
		if f == field {
			return true
		}
	}
	return false
}

// Schemas bundles the layouts for every kind.
type Schemas struct {
	Person     Schema
	Group      Schema
	Contact    Schema
	Attachment AttachmentSchema
}

// AttachmentSchema names the columns of the attachment table.
type AttachmentSchema struct {
	Table            string
	OwnerField       string
	NameField        string
	BodyField        string
	LengthField      string
	ContentTypeField string
}

// For returns the schema of a person, group or contact kind.
func (s Schemas) For(kind Kind) (Schema, bool) {
	switch kind {
	case KindPerson:
		return s.Person, true
	case KindGroup:
		return s.Group, true
	case KindContact:
		return s.Contact, true
	}
	return Schema{}, false
}

// Table returns the remote table name for any kind.
func (s Schemas) Table(kind Kind) string {
	if kind == KindAttachment {
		return s.Attachment.Table
	}
	schema, _ := s.For(kind)
	return schema.Table
}

// DefaultSchemas returns the production layout of the adoption listing CRM.
func DefaultSchemas() Schemas {
	return Schemas{
		Person: Schema{
			Kind:             KindPerson,
			Table:            "Children__c",
			Label:            "Child",
			CaseNumberField:  "Case_Number__c",
			NameField:        "Name",
			LinkField:        "Link_to_Child_s_Page__c",
			TouchField:       "Recruitment_Update__c",
			Excluded:         []string{"Child_Bulletin_Date__c"},
			BirthdateField:   "Child_s_Birthdate__c",
			PicklistFields:   []string{"Child_s_Nationality__c"},
			SummarizedFields: []string{"Child_s_Bio__c", "Caseworker_Placement_Notes__c"},
			ContactField:     "Case_Worker_Contact__c",
			PhotoField:       "Child_s_Photo__c",
			SiblingNoteField: "Child_s_Siblings__c",
		},
		Group: Schema{
			Kind:             KindGroup,
			Table:            "Sibling_Group__c",
			Label:            "Sibling Group",
			CaseNumberField:  "Case_Number__c",
			NameField:        "Name",
			LinkField:        "Children_s_Webpage__c",
			TouchField:       "Recruitment_Update__c",
			Excluded:         []string{"Child_Bulletin_Date__c"},
			SummarizedFields: []string{"Children_s_Bio__c", "Caseworker_Placement_Notes__c"},
			ContactField:     "Caseworker__c",
			PhotoField:       "Sibling_Photo__c",
			MemberRefFormat:  "Child_%d_First_Name__c",
		},
		Contact: Schema{
			Kind:         KindContact,
			Table:        "Contact",
			Label:        "Contact",
			NameField:    "LastName",
			AccountField: "AccountId",
		},
		Attachment: AttachmentSchema{
			Table:            "Attachment",
			OwnerField:       "ParentId",
			NameField:        "Name",
			BodyField:        "Body",
			LengthField:      "BodyLength",
			ContentTypeField: "ContentType",
		},
	}
}
