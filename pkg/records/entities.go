package records

import (
	"fmt"

	"github.com/agentstation/utc"

	"github.com/agentstation/casesync/pkg/constants"
)

// Entity is a top-level record the reconciler can upsert.
type Entity interface {
	Kind() Kind
	ID() string
	Get(name string) any
	String(name string) string
}

// Contact field names.
const (
	FirstName         = "FirstName"
	LastName          = "LastName"
	MailingStreet     = "MailingStreet"
	MailingCity       = "MailingCity"
	MailingState      = "MailingState"
	MailingPostalCode = "MailingPostalCode"
	Phone             = "Phone"
	MobilePhone       = "MobilePhone"
	HomePhone         = "HomePhone"
	OtherPhone        = "OtherPhone"
	Email             = "Email"
)

// Person is a single listed person. It may carry a caseworker contact and
// pending attachments and belongs to at most one group.
type Person struct {
	*Record
	Contact     *Contact
	Attachments []*Attachment

	group *Group
}

// NewPerson creates a person stamped with the current time.
func NewPerson() *Person {
	return NewPersonAt(utc.Now())
}

// NewPersonAt creates a person whose listing constants and touch field are
// stamped with now.
func NewPersonAt(now utc.Time) *Person {
	schema := DefaultSchemas().Person
	today := now.Time.Format(constants.TimeFormatDate)
	p := &Person{
		Record: NewRecord(KindPerson, schema.Table, Fields{
			"Recruitment_Status__c":                "Pre-Recruitment",
			"Recruitment_Region__c":                "National",
			"Web_Approval__c":                      false,
			"Adoption_Recruitment__c":              true,
			"Web_Adoption_Recruitment_Date__c":     today,
			"Northwest_HG_Private_Listing_Date__c": today,
			"Northwest_HG__c":                      true,
			"Web__c":                               true,
			"Web_Date__c":                          today,
			"Action_Needed_Date__c":                today,
		}),
		Attachments: []*Attachment{},
	}
	p.Set(schema.TouchField, TouchStamp(now))
	return p
}

// Group returns the group owning this person, if any.
func (p *Person) Group() *Group {
	return p.group
}

// Group is a grouped-family listing. Its members are reconciled before it
// and referenced by position.
type Group struct {
	*Record
	Members     []*Person
	Contact     *Contact
	Attachments []*Attachment
}

// NewGroup creates a group stamped with the current time.
func NewGroup() *Group {
	return NewGroupAt(utc.Now())
}

// NewGroupAt creates a group whose listing constants and touch field are
// stamped with now.
func NewGroupAt(now utc.Time) *Group {
	schema := DefaultSchemas().Group
	today := now.Time.Format(constants.TimeFormatDate)
	g := &Group{
		Record: NewRecord(KindGroup, schema.Table, Fields{
			"Recruitment_Status__c":                "Pre-Recruitment",
			"Northwest_HG_Private_Listing_Date__c": today,
			"Northwest_HG__c":                      true,
			"Date_of_Last_Update__c":               today,
		}),
		Members:     []*Person{},
		Attachments: []*Attachment{},
	}
	g.Set(schema.TouchField, TouchStamp(now))
	return g
}

// AddMember appends p to the group. A person already owned by another
// group is rejected.
func (g *Group) AddMember(p *Person) error {
	if p == nil {
		return fmt.Errorf("nil member")
	}
	if p.group != nil && p.group != g {
		return fmt.Errorf("person %s already belongs to group %s",
			p.String("Case_Number__c"), p.group.String("Case_Number__c"))
	}
	if p.group == g {
		return nil
	}
	p.group = g
	g.Members = append(g.Members, p)
	return nil
}

// MemberNames returns the member names in member order.
func (g *Group) MemberNames(nameField string) []string {
	names := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		names = append(names, m.String(nameField))
	}
	return names
}

// Contact is a caseworker or guardian referenced by persons and groups.
type Contact struct {
	*Record
}

// NewContact creates a contact from the given variable fields.
func NewContact(fields Fields) *Contact {
	c := &Contact{Record: NewRecord(KindContact, DefaultSchemas().Contact.Table, nil)}
	c.SetFields(fields)
	return c
}

// ContactFromRow builds a contact from a remote row with its id.
func ContactFromRow(id string, row Fields) *Contact {
	c := NewContact(row)
	c.Unset("Id")
	c.SetID(id)
	return c
}

// FullName returns "First Last".
func (c *Contact) FullName() string {
	first, last := c.String(FirstName), c.String(LastName)
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}

// TouchStamp renders the bookkeeping value written on every scrape.
func TouchStamp(now utc.Time) string {
	return now.Time.Format(constants.TimeFormatTouch) + " - " + constants.TouchSuffix
}
