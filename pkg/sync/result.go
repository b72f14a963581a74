package sync

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agentstation/casesync/pkg/reconciler"
	"github.com/agentstation/casesync/pkg/records"
)

// Result represents the complete result of a sync run.
type Result struct {
	RunID      string        // Unique id of the run, also attached to every log line
	StartedAt  time.Time     // When the run started
	Duration   time.Duration // Wall time of the run
	DryRun     bool          // Whether writes were only recorded
	ReportPath string        // Change report file, empty when disabled
	Collected  int           // Entities handed over by the collector, members included

	// Counts per record kind and action
	Counts map[records.Kind]map[reconciler.Action]int

	// Outcomes of top-level entities in processing order
	Outcomes []*reconciler.Outcome

	// Errors collected while the run continued
	Errors []error
}

// NewResult creates an empty result for run id.
func NewResult(runID string, started time.Time, dryRun bool) *Result {
	return &Result{
		RunID:     runID,
		StartedAt: started,
		DryRun:    dryRun,
		Counts:    make(map[records.Kind]map[reconciler.Action]int),
	}
}

// Record tallies an outcome and the outcomes of its members.
func (r *Result) Record(o *reconciler.Outcome) {
	if o == nil {
		return
	}
	r.Outcomes = append(r.Outcomes, o)
	r.count(o)
}

func (r *Result) count(o *reconciler.Outcome) {
	if r.Counts[o.Kind] == nil {
		r.Counts[o.Kind] = make(map[reconciler.Action]int)
	}
	r.Counts[o.Kind][o.Action]++
	for _, m := range o.Members {
		r.count(m)
	}
}

// Count returns how many entities of kind ended with action.
func (r *Result) Count(kind records.Kind, action reconciler.Action) int {
	return r.Counts[kind][action]
}

// Total returns how many entities ended with action across kinds.
func (r *Result) Total(action reconciler.Action) int {
	n := 0
	for _, byAction := range r.Counts {
		n += byAction[action]
	}
	return n
}

// HasChanges returns true if anything was created or updated.
func (r *Result) HasChanges() bool {
	return r.Total(reconciler.ActionCreated) > 0 || r.Total(reconciler.ActionUpdated) > 0
}

// HasErrors returns true if any entity failed.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Kinds returns the record kinds present in Counts in sorted order.
func (r *Result) Kinds() []records.Kind {
	kinds := make([]records.Kind, 0, len(r.Counts))
	for k := range r.Counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Summary returns a human-readable summary of the sync result.
func (r *Result) Summary() string {
	summary := fmt.Sprintf("%d created, %d updated, %d unchanged, %d failed",
		r.Total(reconciler.ActionCreated),
		r.Total(reconciler.ActionUpdated),
		r.Total(reconciler.ActionUnchanged),
		r.Total(reconciler.ActionFailed))

	var parts []string
	if r.DryRun {
		parts = append(parts, "(Dry run)")
	}
	if !r.HasChanges() && !r.HasErrors() {
		parts = append(parts, "(No changes)")
	}
	if len(parts) > 0 {
		summary += " " + strings.Join(parts, " ")
	}
	return summary
}
