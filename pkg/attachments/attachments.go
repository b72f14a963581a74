// Package attachments decides which attachments still need uploading and
// renders the primary portrait for embedding into its owner record.
//
// Duplicates are detected by content length only. Two different images of
// the same length are treated as one; re-uploading a missed image by hand
// is the accepted remedy.
package attachments

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/store"
)

// FilterByFingerprint drops every candidate whose length matches an
// unconsumed existing fingerprint. Each existing fingerprint absorbs at most
// one candidate. Survivors keep their order.
func FilterByFingerprint(existing []int64, candidates []*records.Attachment) []*records.Attachment {
	remaining := make(map[int64]int, len(existing))
	for _, length := range existing {
		remaining[length]++
	}

	out := make([]*records.Attachment, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		length := c.Fingerprint()
		if remaining[length] > 0 {
			remaining[length]--
			continue
		}
		out = append(out, c)
	}
	return out
}

// Deduplicator filters attachments against those already stored remotely.
type Deduplicator struct {
	store store.Store
}

// NewDeduplicator creates a Deduplicator over s.
func NewDeduplicator(s store.Store) *Deduplicator {
	return &Deduplicator{store: s}
}

// FilterNew returns the candidates not yet stored for ownerID.
func (d *Deduplicator) FilterNew(ctx context.Context, ownerID string, candidates []*records.Attachment) ([]*records.Attachment, error) {
	if len(candidates) == 0 {
		return []*records.Attachment{}, nil
	}
	existing, err := d.store.AttachmentFingerprints(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	fresh := FilterByFingerprint(existing, candidates)
	logging.FromContext(ctx).Debug().
		Str("owner_id", ownerID).
		Int("existing", len(existing)).
		Int("candidates", len(candidates)).
		Int("new", len(fresh)).
		Msg("Filtered attachments")
	return fresh, nil
}

// ContentType returns the declared content type of a, sniffing the payload
// when none is set.
func ContentType(a *records.Attachment) string {
	if a.ContentType != "" {
		return a.ContentType
	}
	return mimetype.Detect(a.Body).String()
}

// PortraitHTML renders a as an inline <img> tag with a base64 data URI.
func PortraitHTML(alt string, a *records.Attachment) (string, error) {
	mediaType := ContentType(a)
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}

	img := &html.Node{
		Type:     html.ElementNode,
		Data:     atom.Img.String(),
		DataAtom: atom.Img,
		Attr: []html.Attribute{
			{Key: "alt", Val: alt},
			{Key: "src", Val: "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(a.Body)},
		},
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, img); err != nil {
		return "", err
	}
	return buf.String(), nil
}
