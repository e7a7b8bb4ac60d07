package engine

import "github.com/vital-ai/vital-graph/internal/materialize"

// ConsistencyReport is the per-kind drift report for one space.
type ConsistencyReport = materialize.Report

// Events receives notifications about committed operations and store drift.
// Implementations must not block; the engine calls them on the write path.
type Events interface {
	// OperationCommitted fires after every durable relational commit.
	OperationCommitted(spaceID string, deleted, inserted int, syncPending bool)

	// SyncFailed fires when a committed operation could not be replayed
	// against the graph store.
	SyncFailed(spaceID string, err error)

	// ConsistencyChecked fires after each consistency check.
	ConsistencyChecked(spaceID string, clean bool)
}

// NopEvents discards all events.
type NopEvents struct{}

func (NopEvents) OperationCommitted(string, int, int, bool) {}
func (NopEvents) SyncFailed(string, error)                  {}
func (NopEvents) ConsistencyChecked(string, bool)           {}
