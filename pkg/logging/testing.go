package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

// Capture collects JSON log lines in memory for test assertions.
type Capture struct {
	Logger *zerolog.Logger
	buf    *bytes.Buffer
}

// NewCapture returns a trace-level logger writing into memory. The global
// level is restored when the test ends.
func NewCapture(t testing.TB) *Capture {
	t.Helper()

	buf := &bytes.Buffer{}
	oldLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(oldLevel) })

	logger := zerolog.New(buf).Level(zerolog.TraceLevel)
	return &Capture{Logger: &logger, buf: buf}
}

// CaptureDefault installs a Capture as the default logger until the test
// ends, for code that logs through FromContext without a context logger.
func CaptureDefault(t testing.TB) *Capture {
	t.Helper()

	original := *Default()
	c := NewCapture(t)
	SetDefault(*c.Logger)
	t.Cleanup(func() { SetDefault(original) })
	return c
}

// Output returns everything logged so far.
func (c *Capture) Output() string {
	return c.buf.String()
}

// Entries decodes each logged line. Lines that are not JSON are skipped.
func (c *Capture) Entries() []map[string]any {
	var entries []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(c.buf.Bytes()))
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err == nil {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Messages returns the entries logged with msg, in order.
func (c *Capture) Messages(msg string) []map[string]any {
	var out []map[string]any
	for _, entry := range c.Entries() {
		if entry[zerolog.MessageFieldName] == msg {
			out = append(out, entry)
		}
	}
	return out
}
