package snapshot

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentstation/utc"
	"github.com/spf13/cast"

	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/sources"
)

// Document is the on-disk layout of a saved scrape.
type Document struct {
	// CapturedAt stamps the listing constants and touch field. Empty means
	// the time the snapshot is loaded.
	CapturedAt string   `yaml:"captured_at,omitempty" json:"captured_at,omitempty"`
	Persons    []Person `yaml:"persons" json:"persons"`
	Groups     []Group  `yaml:"groups" json:"groups"`
}

// Person is one scraped person.
type Person struct {
	Fields      map[string]any `yaml:"fields" json:"fields"`
	Contact     map[string]any `yaml:"contact,omitempty" json:"contact,omitempty"`
	Attachments []Attachment   `yaml:"attachments,omitempty" json:"attachments,omitempty"`
}

// Group is one scraped sibling group. Members are case numbers of persons
// listed in the same document, in member order.
type Group struct {
	Fields      map[string]any `yaml:"fields" json:"fields"`
	Members     []string       `yaml:"members" json:"members"`
	Contact     map[string]any `yaml:"contact,omitempty" json:"contact,omitempty"`
	Attachments []Attachment   `yaml:"attachments,omitempty" json:"attachments,omitempty"`
}

// Attachment is a downloaded file. The payload comes from Path (relative to
// the snapshot file) or from base64 Data.
type Attachment struct {
	Name        string `yaml:"name" json:"name"`
	Path        string `yaml:"path,omitempty" json:"path,omitempty"`
	Data        string `yaml:"data,omitempty" json:"data,omitempty"`
	ContentType string `yaml:"content_type,omitempty" json:"content_type,omitempty"`
	Length      int64  `yaml:"length,omitempty" json:"length,omitempty"`
	Primary     bool   `yaml:"primary,omitempty" json:"primary,omitempty"`
}

// capturedAt resolves the stamp time of the document.
func (d *Document) capturedAt(fallback func() utc.Time) (utc.Time, error) {
	if d.CapturedAt == "" {
		return fallback(), nil
	}
	t, err := cast.ToTimeE(d.CapturedAt)
	if err != nil {
		return utc.Time{}, fmt.Errorf("captured_at: %w", err)
	}
	return utc.New(t), nil
}

// build turns the document into entities. dir resolves attachment paths.
func (d *Document) build(dir string, now utc.Time) (*sources.Batch, error) {
	batch := &sources.Batch{}
	caseField := records.DefaultSchemas().Person.CaseNumberField
	byCase := make(map[string]*records.Person, len(d.Persons))

	for i, raw := range d.Persons {
		p := records.NewPersonAt(now)
		p.SetFields(records.Fields(raw.Fields))
		if caseNumber := p.String(caseField); caseNumber != "" {
			if _, dup := byCase[caseNumber]; dup {
				return nil, fmt.Errorf("persons[%d]: duplicate case number %s", i, caseNumber)
			}
			byCase[caseNumber] = p
		}
		if len(raw.Contact) > 0 {
			p.Contact = records.NewContact(records.Fields(raw.Contact))
		}
		files, err := loadAttachments(dir, raw.Attachments)
		if err != nil {
			return nil, fmt.Errorf("persons[%d]: %w", i, err)
		}
		p.Attachments = append(p.Attachments, files...)
		batch.Persons = append(batch.Persons, p)
	}

	for i, raw := range d.Groups {
		g := records.NewGroupAt(now)
		g.SetFields(records.Fields(raw.Fields))
		for _, caseNumber := range raw.Members {
			member, ok := byCase[caseNumber]
			if !ok {
				return nil, fmt.Errorf("groups[%d]: unknown member %s", i, caseNumber)
			}
			if err := g.AddMember(member); err != nil {
				return nil, fmt.Errorf("groups[%d]: %w", i, err)
			}
		}
		if len(raw.Contact) > 0 {
			g.Contact = records.NewContact(records.Fields(raw.Contact))
		}
		files, err := loadAttachments(dir, raw.Attachments)
		if err != nil {
			return nil, fmt.Errorf("groups[%d]: %w", i, err)
		}
		g.Attachments = append(g.Attachments, files...)
		batch.Groups = append(batch.Groups, g)
	}

	return batch, nil
}

func loadAttachments(dir string, raw []Attachment) ([]*records.Attachment, error) {
	out := make([]*records.Attachment, 0, len(raw))
	for _, a := range raw {
		var body []byte
		switch {
		case a.Path != "":
			path := a.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("attachment %s: %w", a.Name, err)
			}
			body = data
		case a.Data != "":
			data, err := base64.StdEncoding.DecodeString(a.Data)
			if err != nil {
				return nil, fmt.Errorf("attachment %s: %w", a.Name, err)
			}
			body = data
		}

		name := a.Name
		if name == "" && a.Path != "" {
			name = filepath.Base(a.Path)
		}
		att := records.NewAttachment(name, body, a.Primary)
		att.ContentType = a.ContentType
		if a.Length > 0 {
			att.Length = a.Length
		}
		out = append(out, att)
	}
	return out, nil
}
