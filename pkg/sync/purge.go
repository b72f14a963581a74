package sync

import (
	"fmt"

	"github.com/agentstation/casesync/pkg/records"
)

// PurgeStatus is the final state of a purge of one table.
type PurgeStatus string

const (
	// PurgeCompleted means every record was deleted.
	PurgeCompleted PurgeStatus = "completed"
	// PurgeTimedOut means the wait budget ran out before the deletes finished.
	PurgeTimedOut PurgeStatus = "timed_out"
	// PurgeFailed means the store rejected the listing or a delete batch.
	PurgeFailed PurgeStatus = "failed"
)

// PurgeOutcome reports the purge of one record kind.
type PurgeOutcome struct {
	Kind      records.Kind
	Table     string
	Status    PurgeStatus
	Requested int   // Records found before deleting
	Deleted   int   // Records the store confirmed deleted
	Err       error // Cause when Status is not completed
}

// String returns a one-line description of the outcome.
func (p PurgeOutcome) String() string {
	s := fmt.Sprintf("%s (%s): %s, %d/%d deleted", p.Kind, p.Table, p.Status, p.Deleted, p.Requested)
	if p.Err != nil {
		s += ": " + p.Err.Error()
	}
	return s
}

// Completed reports whether the purge finished.
func (p PurgeOutcome) Completed() bool {
	return p.Status == PurgeCompleted
}
