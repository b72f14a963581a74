package records

// Attachment is a binary file owned by exactly one person or group.
type Attachment struct {
	Name        string
	Body        []byte
	ContentType string
	// Length is the logical size used as a content fingerprint. When zero,
	// the payload length is used.
	Length int64
	// Primary marks the portrait that is also embedded into the owner record.
	Primary bool
}

// NewAttachment creates an attachment for the given payload.
func NewAttachment(name string, body []byte, primary bool) *Attachment {
	return &Attachment{
		Name:    name,
		Body:    append([]byte(nil), body...),
		Length:  int64(len(body)),
		Primary: primary,
	}
}

// Kind returns KindAttachment.
func (a *Attachment) Kind() Kind {
	return KindAttachment
}

// Fingerprint returns the logical length of the attachment.
func (a *Attachment) Fingerprint() int64 {
	if a.Length > 0 {
		return a.Length
	}
	return int64(len(a.Body))
}
