package reconciler

import (
	"github.com/agentstation/casesync/pkg/differ"
	"github.com/agentstation/casesync/pkg/records"
)

// Action is what happened to an entity remotely.
type Action string

const (
	// ActionCreated means the entity did not exist and was created.
	ActionCreated Action = "created"
	// ActionUpdated means reportable changes were found or empty fields were filled.
	ActionUpdated Action = "updated"
	// ActionUnchanged means the remote copy already matched.
	ActionUnchanged Action = "unchanged"
	// ActionFailed means the entity could not be reconciled.
	ActionFailed Action = "failed"
)

// Outcome describes the reconciliation of one entity.
type Outcome struct {
	Kind       records.Kind
	CaseNumber string
	Name       string
	ID         string
	Action     Action

	// Changeset is the diff against the existing remote copy; nil on create.
	Changeset *differ.Changeset
	// Reported is set when a report section was written.
	Reported bool
	// Written holds the partial update sent for an existing record.
	Written records.Fields
	// Uploaded counts attachments uploaded.
	Uploaded int
	// Members holds the outcomes of a group's members in member order.
	Members []*Outcome
	// Err is the error that stopped reconciliation of this entity.
	Err error
}

// Created reports whether the entity was created.
func (o *Outcome) Created() bool {
	return o != nil && o.Action == ActionCreated
}
