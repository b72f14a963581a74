package casesync

import (
	"sync"

	"github.com/agentstation/casesync/pkg/reconciler"
)

// Hook function types for entity events
type (
	// EntityAddedHook is called when an entity is created remotely
	EntityAddedHook func(o *reconciler.Outcome)

	// EntityUpdatedHook is called when an existing entity had reportable
	// changes or empty fields filled
	EntityUpdatedHook func(o *reconciler.Outcome)

	// EntityFailedHook is called when an entity could not be reconciled
	EntityFailedHook func(o *reconciler.Outcome, err error)
)

// hooks manages event callbacks for reconciliation outcomes
type hooks struct {
	mu              sync.RWMutex
	onEntityAdded   []EntityAddedHook
	onEntityUpdated []EntityUpdatedHook
	onEntityFailed  []EntityFailedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnEntityAdded registers a callback for when entities are created
func (h *hooks) OnEntityAdded(fn EntityAddedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEntityAdded = append(h.onEntityAdded, fn)
}

// OnEntityUpdated registers a callback for when entities are updated
func (h *hooks) OnEntityUpdated(fn EntityUpdatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEntityUpdated = append(h.onEntityUpdated, fn)
}

// OnEntityFailed registers a callback for when entities fail
func (h *hooks) OnEntityFailed(fn EntityFailedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEntityFailed = append(h.onEntityFailed, fn)
}

// trigger fires the hooks of an outcome, members first. err is handed to
// failed hooks of o; members get their own error.
func (h *hooks) trigger(o *reconciler.Outcome, err error) {
	if o == nil {
		return
	}
	for _, m := range o.Members {
		h.trigger(m, m.Err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	switch o.Action {
	case reconciler.ActionCreated:
		for _, hook := range h.onEntityAdded {
			hook(o)
		}
	case reconciler.ActionUpdated:
		for _, hook := range h.onEntityUpdated {
			hook(o)
		}
	case reconciler.ActionFailed:
		for _, hook := range h.onEntityFailed {
			hook(o, err)
		}
	}
}
