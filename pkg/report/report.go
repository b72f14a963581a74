// Package report writes the human-readable change report of a sync run.
//
// The report is append-only and sectioned by operation:
//
//	=========
//	ADD CHILD
//	=========
//	https://example.org/child/123456
//	123456 - Ana
//
// Update sections additionally list each changed field as "Field: old, new".
// Long free-text fields are reported as changed without their contents.
package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/agentstation/utc"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/differ"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/records"
)

// Action is the kind of report section.
type Action string

const (
	// ActionAdd marks a newly created record.
	ActionAdd Action = "Add"
	// ActionUpdate marks an existing record with reportable changes.
	ActionUpdate Action = "Update"
)

const (
	emptyValue   = "(none)"
	changedValue = "changed"
)

// Writer appends sections to a report. It is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	buf     *bufio.Writer
	closer  io.Closer
	path    string
	entries int
	closed  bool
}

// New creates a Writer on w. Closing the Writer flushes it and closes w
// when w is an io.Closer.
func New(w io.Writer) *Writer {
	rw := &Writer{buf: bufio.NewWriterSize(w, constants.WriteBufferSize)}
	if c, ok := w.(io.Closer); ok {
		rw.closer = c
	}
	return rw
}

// FileName returns the report file name for a run started at now.
func FileName(now utc.Time) string {
	return constants.ReportPrefix + now.Time.Format(constants.TimeFormatFilename) + ".txt"
}

// Open creates the report file for a run started at now inside dir.
func Open(dir string, now utc.Time) (*Writer, error) {
	if dir == "" {
		dir = constants.DefaultReportDir
	}
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", dir, err)
	}
	path := filepath.Join(dir, FileName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	w := New(f)
	w.path = path
	return w, nil
}

// Path returns the report file path, empty for writers not opened with Open.
func (w *Writer) Path() string {
	return w.path
}

// Entries returns the number of sections written.
func (w *Writer) Entries() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entries
}

// WriteAdd appends an ADD section for a created record.
func (w *Writer) WriteAdd(schema records.Schema, e records.Entity) error {
	return w.write(ActionAdd, schema, e, nil)
}

// WriteUpdate appends an UPDATE section listing the changes in cs.
// Summarized fields are logged as a unified diff at debug level.
func (w *Writer) WriteUpdate(ctx context.Context, schema records.Schema, e records.Entity, cs *differ.Changeset) error {
	logger := logging.FromContext(ctx)
	lines := make([]string, 0, cs.Len())
	for _, ch := range cs.Changes {
		if schema.IsSummarized(ch.Field) {
			lines = append(lines, fmt.Sprintf("%s: %s", ch.Field, changedValue))
			if diff := UnifiedDiff(ch.Field, ch.Old, ch.New); diff != "" {
				logger.Debug().Str("field", ch.Field).Msg("Long text changed\n" + diff)
			}
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s, %s", ch.Field, display(ch.Old), display(ch.New)))
	}
	return w.write(ActionUpdate, schema, e, lines)
}

// Flush writes buffered sections to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.buf.Flush()
}

// Close flushes and releases the report. Calling Close again is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.buf.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return errors.WrapIO("close", w.path, err)
	}
	return nil
}

func (w *Writer) write(action Action, schema records.Schema, e records.Entity, lines []string) error {
	var b strings.Builder
	title := Banner(action, schema.Label)
	rule := strings.Repeat("=", utf8.RuneCountInString(title))
	fmt.Fprintf(&b, "%s\n%s\n%s\n", rule, title, rule)
	fmt.Fprintf(&b, "%s\n", e.String(schema.LinkField))
	fmt.Fprintf(&b, "%s - %s\n", e.String(schema.CaseNumberField), e.String(schema.NameField))
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.WrapIO("write", w.path, errors.New("report is closed"))
	}
	if _, err := w.buf.WriteString(b.String()); err != nil {
		return errors.WrapIO("write", w.path, err)
	}
	w.entries++
	return nil
}

// Banner returns the section title, e.g. "UPDATE SIBLING GROUP".
func Banner(action Action, label string) string {
	return cases.Upper(language.English).String(string(action) + " " + label)
}

// UnifiedDiff renders a line diff between two long text values.
func UnifiedDiff(field string, stored, scraped any) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(records.Canonical(stored)),
		B:        difflib.SplitLines(records.Canonical(scraped)),
		FromFile: field + " (stored)",
		ToFile:   field + " (scraped)",
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return diff
}

func display(v any) string {
	if records.IsEmpty(v) {
		return emptyValue
	}
	return records.Canonical(v)
}
