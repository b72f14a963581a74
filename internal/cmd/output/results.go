package output

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/casesync/pkg/reconciler"
	"github.com/agentstation/casesync/pkg/records"
	pkgsync "github.com/agentstation/casesync/pkg/sync"
)

// actions is the column order of per-kind counts.
var actions = []reconciler.Action{
	reconciler.ActionCreated,
	reconciler.ActionUpdated,
	reconciler.ActionUnchanged,
	reconciler.ActionFailed,
}

// Run is the serializable view of a sync result.
type Run struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	Duration   string        `json:"duration" yaml:"duration"`
	DryRun     bool          `json:"dry_run" yaml:"dry_run"`
	ReportPath string        `json:"report_path,omitempty" yaml:"report_path,omitempty"`
	Collected  int           `json:"collected" yaml:"collected"`
	Summary    string        `json:"summary" yaml:"summary"`
	Counts     []KindCount   `json:"counts" yaml:"counts"`
	Entities   []EntityState `json:"entities" yaml:"entities"`
	Errors     []string      `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// KindCount tallies the actions taken for one record kind.
type KindCount struct {
	Kind      records.Kind `json:"kind" yaml:"kind"`
	Created   int          `json:"created" yaml:"created"`
	Updated   int          `json:"updated" yaml:"updated"`
	Unchanged int          `json:"unchanged" yaml:"unchanged"`
	Failed    int          `json:"failed" yaml:"failed"`
}

// EntityState is the flattened outcome of one entity.
type EntityState struct {
	Kind       records.Kind      `json:"kind" yaml:"kind"`
	CaseNumber string            `json:"case_number" yaml:"case_number"`
	Name       string            `json:"name" yaml:"name"`
	ID         string            `json:"id,omitempty" yaml:"id,omitempty"`
	Action     reconciler.Action `json:"action" yaml:"action"`
	Changed    []string          `json:"changed,omitempty" yaml:"changed,omitempty"`
	Uploaded   int               `json:"uploaded,omitempty" yaml:"uploaded,omitempty"`
	Group      string            `json:"group,omitempty" yaml:"group,omitempty"`
}

// NewRun builds the view of result.
func NewRun(result *pkgsync.Result) *Run {
	run := &Run{
		RunID:      result.RunID,
		StartedAt:  result.StartedAt,
		Duration:   result.Duration.Round(time.Millisecond).String(),
		DryRun:     result.DryRun,
		ReportPath: result.ReportPath,
		Collected:  result.Collected,
		Summary:    result.Summary(),
		Counts:     []KindCount{},
		Entities:   []EntityState{},
	}

	for _, kind := range result.Kinds() {
		run.Counts = append(run.Counts, KindCount{
			Kind:      kind,
			Created:   result.Count(kind, reconciler.ActionCreated),
			Updated:   result.Count(kind, reconciler.ActionUpdated),
			Unchanged: result.Count(kind, reconciler.ActionUnchanged),
			Failed:    result.Count(kind, reconciler.ActionFailed),
		})
	}

	for _, o := range result.Outcomes {
		run.Entities = appendEntity(run.Entities, o, "")
	}
	for _, err := range result.Errors {
		run.Errors = append(run.Errors, err.Error())
	}
	return run
}

func appendEntity(out []EntityState, o *reconciler.Outcome, group string) []EntityState {
	if o == nil {
		return out
	}
	for _, m := range o.Members {
		out = appendEntity(out, m, o.CaseNumber)
	}
	return append(out, EntityState{
		Kind:       o.Kind,
		CaseNumber: o.CaseNumber,
		Name:       o.Name,
		ID:         o.ID,
		Action:     o.Action,
		Changed:    o.Changeset.Fields(),
		Uploaded:   o.Uploaded,
		Group:      group,
	})
}

// TableData implements Tabular. The default layout has one row per kind;
// wide lists every entity.
func (r *Run) TableData(wide bool) Data {
	footer := r.Summary
	if r.ReportPath != "" {
		footer += "\nReport: " + r.ReportPath
	}
	for _, e := range r.Errors {
		footer += "\nError: " + e
	}

	if wide {
		data := Data{
			Headers:         []string{"Kind", "Case", "Name", "ID", "Action", "Changed", "Uploaded"},
			ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight},
			Footer:          footer,
		}
		for _, e := range r.Entities {
			data.Rows = append(data.Rows, []string{
				string(e.Kind),
				e.CaseNumber,
				e.Name,
				e.ID,
				string(e.Action),
				strings.Join(e.Changed, ", "),
				strconv.Itoa(e.Uploaded),
			})
		}
		return data
	}

	headers := []string{"Kind"}
	for _, a := range actions {
		headers = append(headers, titleCase(string(a)))
	}
	data := Data{
		Headers:         headers,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight},
		Footer:          footer,
	}
	for _, c := range r.Counts {
		data.Rows = append(data.Rows, []string{
			string(c.Kind),
			strconv.Itoa(c.Created),
			strconv.Itoa(c.Updated),
			strconv.Itoa(c.Unchanged),
			strconv.Itoa(c.Failed),
		})
	}
	return data
}

// Purge is the serializable view of a purge.
type Purge []PurgeTable

// PurgeTable is the outcome of purging one table.
type PurgeTable struct {
	Kind      records.Kind `json:"kind" yaml:"kind"`
	Table     string       `json:"table" yaml:"table"`
	Status    string       `json:"status" yaml:"status"`
	Requested int          `json:"requested" yaml:"requested"`
	Deleted   int          `json:"deleted" yaml:"deleted"`
	Error     string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewPurge builds the view of purge outcomes.
func NewPurge(outcomes []pkgsync.PurgeOutcome) Purge {
	out := make(Purge, 0, len(outcomes))
	for _, o := range outcomes {
		t := PurgeTable{
			Kind:      o.Kind,
			Table:     o.Table,
			Status:    string(o.Status),
			Requested: o.Requested,
			Deleted:   o.Deleted,
		}
		if o.Err != nil {
			t.Error = o.Err.Error()
		}
		out = append(out, t)
	}
	return out
}

// TableData implements Tabular.
func (p Purge) TableData(bool) Data {
	data := Data{
		Headers:         []string{"Kind", "Table", "Status", "Deleted", "Error"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}
	for _, t := range p {
		data.Rows = append(data.Rows, []string{
			string(t.Kind),
			t.Table,
			t.Status,
			fmt.Sprintf("%d/%d", t.Deleted, t.Requested),
			t.Error,
		})
	}
	return data
}

// Labels is the serializable view of a picklist.
type Labels struct {
	Table  string   `json:"table,omitempty" yaml:"table,omitempty"`
	Field  string   `json:"field" yaml:"field"`
	Labels []string `json:"labels" yaml:"labels"`
}

// TableData implements Tabular.
func (l *Labels) TableData(bool) Data {
	data := Data{
		Headers:         []string{"#", "Label"},
		ColumnAlignment: []Align{AlignRight, AlignLeft},
		Footer:          fmt.Sprintf("%s.%s: %d labels", l.Table, l.Field, len(l.Labels)),
	}
	for i, label := range l.Labels {
		data.Rows = append(data.Rows, []string{strconv.Itoa(i + 1), label})
	}
	return data
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// LabelSet is the view of every picklist field, sorted by field.
type LabelSet []Labels

// NewLabelSet builds the view of labels keyed by field.
func NewLabelSet(labels map[string][]string) LabelSet {
	fields := make([]string, 0, len(labels))
	for field := range labels {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	set := make(LabelSet, 0, len(fields))
	for _, field := range fields {
		set = append(set, Labels{Field: field, Labels: labels[field]})
	}
	return set
}

// TableData implements Tabular.
func (s LabelSet) TableData(bool) Data {
	data := Data{
		Headers:         []string{"Field", "#", "Label"},
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignLeft},
	}
	for _, l := range s {
		if len(l.Labels) == 0 {
			data.Rows = append(data.Rows, []string{l.Field, "-", "(none)"})
			continue
		}
		for i, label := range l.Labels {
			data.Rows = append(data.Rows, []string{l.Field, strconv.Itoa(i + 1), label})
		}
	}
	return data
}
