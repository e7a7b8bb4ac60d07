// Package engine coordinates writes across the relational store and the
// graph store.
//
// The relational store is authoritative: an operation's insert and delete
// sets are applied inside a single relational transaction, and only a
// successful commit makes the operation real. The graph store is a derived
// copy kept in step after commit on a best-effort basis. A failed graph sync
// never fails the operation; it is logged, reported as pending, and closed
// later by the consistency daemon or a rebuild.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/vital-ai/vital-graph/internal/materialize"
	"github.com/vital-ai/vital-graph/internal/rdf"
	"github.com/vital-ai/vital-graph/internal/sparql"
	"github.com/vital-ai/vital-graph/internal/store/rel"
)

// GraphStore is the slice of the graph-store client the engine needs.
type GraphStore interface {
	Update(ctx context.Context, dataset, updateText string) error
	QueryBindings(ctx context.Context, dataset, queryText string) ([]sparql.Binding, error)
	CreateDataset(ctx context.Context, dataset string) error
	DropDataset(ctx context.Context, dataset string) error
}

// Engine is the dual-write coordinator. Safe for concurrent use; the
// relational store serializes writers per space.
type Engine struct {
	rel    *rel.Store
	graph  GraphStore
	mat    *materialize.Manager
	events Events
	logger *log.Logger
}

// New creates an Engine. If events is nil, events are discarded. If logger
// is nil, a default logger writing to stderr is used.
func New(relStore *rel.Store, graph GraphStore, mat *materialize.Manager, events Events, logger *log.Logger) *Engine {
	if events == nil {
		events = NopEvents{}
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	return &Engine{
		rel:    relStore,
		graph:  graph,
		mat:    mat,
		events: events,
		logger: logger,
	}
}

// Registry exposes the canonical edge kind table for read-path callers.
func (e *Engine) Registry() *materialize.Registry {
	return e.mat.Registry()
}

// Result reports the outcome of one committed (or rejected) operation.
type Result struct {
	// Committed is true once the relational transaction is durable.
	Committed bool `json:"committed"`

	// SyncPending is true when the relational commit succeeded but the
	// graph store could not be brought in step. The data is safe; the
	// graph copy is stale until the daemon repairs it or the space is
	// rebuilt.
	SyncPending bool `json:"sync_pending"`

	Deleted  int `json:"deleted"`
	Inserted int `json:"inserted"`
}

// UpdateQuads is the atomic replace primitive: delete every quad in
// deleteSet, then insert every quad in insertSet, as one relational
// transaction. Both halves are idempotent, so replaying a committed
// operation is harmless. Quads with no graph are placed in graphID.
//
// On any relational failure the transaction rolls back and the graph store
// is never touched. After commit the graph store is synced and the
// materializer runs; failures there are logged and surfaced as SyncPending,
// never as an error.
func (e *Engine) UpdateQuads(ctx context.Context, spaceID string, graphID rdf.IRI, deleteSet, insertSet []rdf.Quad) (*Result, error) {
	deleteSet = e.prepareSet(spaceID, graphID, deleteSet)
	insertSet = e.prepareSet(spaceID, graphID, insertSet)

	if len(deleteSet) == 0 && len(insertSet) == 0 {
		e.events.OperationCommitted(spaceID, 0, 0, false)
		return &Result{Committed: true}, nil
	}

	tx, err := e.rel.Begin(ctx, spaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range deleteSet {
		if err := tx.DeleteQuad(ctx, q); err != nil {
			return nil, fmt.Errorf("failed to delete quad %s: %w", q.String(), err)
		}
	}
	for _, q := range insertSet {
		if err := tx.InsertQuad(ctx, q); err != nil {
			return nil, fmt.Errorf("failed to insert quad %s: %w", q.String(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	result := &Result{
		Committed: true,
		Deleted:   len(deleteSet),
		Inserted:  len(insertSet),
	}

	// Commit point passed: from here nothing fails the operation.
	if err := e.syncGraph(ctx, spaceID, deleteSet, insertSet); err != nil {
		result.SyncPending = true
		e.logger.Printf("Graph sync failed for space=%s (relational commit is durable): %v", spaceID, err)
		e.events.SyncFailed(spaceID, err)
	} else if err := e.mat.Apply(ctx, spaceID, insertSet, deleteSet); err != nil {
		result.SyncPending = true
		e.logger.Printf("Materialization failed for space=%s: %v", spaceID, err)
		e.events.SyncFailed(spaceID, err)
	}

	e.events.OperationCommitted(spaceID, result.Deleted, result.Inserted, result.SyncPending)
	return result, nil
}

// Execute applies a parsed operation. A delete-insert operation is one
// UpdateQuads call, never two, so readers never observe the deleted state
// without the inserted one.
func (e *Engine) Execute(ctx context.Context, spaceID string, graphID rdf.IRI, op *rdf.Operation) (*Result, error) {
	switch op.Kind {
	case rdf.OpInsert:
		return e.UpdateQuads(ctx, spaceID, graphID, nil, op.InsertSet)
	case rdf.OpDelete:
		return e.UpdateQuads(ctx, spaceID, graphID, op.DeleteSet, nil)
	case rdf.OpDeleteInsert:
		return e.UpdateQuads(ctx, spaceID, graphID, op.DeleteSet, op.InsertSet)
	default:
		return nil, fmt.Errorf("unknown operation kind: %s", op.Kind)
	}
}

// ApplyUpdateText parses declarative update text and executes the resulting
// operation. Pattern-bound deletes are resolved with a read query against
// the graph store before anything is written. Text that resolves to an
// empty operation is a successful no-op.
func (e *Engine) ApplyUpdateText(ctx context.Context, spaceID string, graphID rdf.IRI, updateText string) (*Result, error) {
	op, err := sparql.Parse(ctx, updateText, graphID, e.queryFn(spaceID))
	if err != nil {
		var empty *sparql.EmptyOperationError
		if errors.As(err, &empty) {
			return &Result{Committed: true}, nil
		}
		return nil, err
	}
	return e.Execute(ctx, spaceID, graphID, op)
}

// AddQuads inserts quads. Retained for callers predating the replace
// primitive.
func (e *Engine) AddQuads(ctx context.Context, spaceID string, graphID rdf.IRI, quads []rdf.Quad) (*Result, error) {
	return e.UpdateQuads(ctx, spaceID, graphID, nil, quads)
}

// RemoveQuads deletes quads. Retained for callers predating the replace
// primitive.
func (e *Engine) RemoveQuads(ctx context.Context, spaceID string, graphID rdf.IRI, quads []rdf.Quad) (*Result, error) {
	return e.UpdateQuads(ctx, spaceID, graphID, quads, nil)
}

// InitSpace creates the relational database and the graph dataset for a
// space. Idempotent.
func (e *Engine) InitSpace(ctx context.Context, spaceID string) error {
	if _, err := e.rel.Space(spaceID); err != nil {
		return fmt.Errorf("failed to create relational space: %w", err)
	}
	if err := e.graph.CreateDataset(ctx, spaceID); err != nil {
		return fmt.Errorf("failed to create graph dataset: %w", err)
	}
	e.logger.Printf("Initialized space: %s", spaceID)
	return nil
}

// Query runs a read query against the graph store for a space.
func (e *Engine) Query(ctx context.Context, spaceID, queryText string) ([]sparql.Binding, error) {
	return e.graph.QueryBindings(ctx, spaceID, queryText)
}

// SelectTriples lists triples in a graph, excluding materialized shortcut
// triples so callers see only asserted data.
func (e *Engine) SelectTriples(ctx context.Context, spaceID string, graphID rdf.IRI, limit int) ([]sparql.Binding, error) {
	b := sparql.NewSelect("s", "p", "o").
		InGraph(graphID).
		Where("?s", "?p", "?o").
		ExcludeMaterialized("p", e.mat.Registry().ShortcutPredicates())
	if limit > 0 {
		b = b.Limit(limit)
	}
	return e.graph.QueryBindings(ctx, spaceID, b.Build())
}

// queryFn adapts the graph store to the parser's read-query callback.
func (e *Engine) queryFn(spaceID string) sparql.QueryFunc {
	return func(ctx context.Context, queryText string) ([]sparql.Binding, error) {
		return e.graph.QueryBindings(ctx, spaceID, queryText)
	}
}

// prepareSet normalizes one operation half: default graph applied, shortcut
// predicates stripped, duplicates collapsed. Shortcut triples are derived
// state owned by the materializer; a caller asserting one directly would
// corrupt the relational store, so the guard lives here rather than in every
// caller.
func (e *Engine) prepareSet(spaceID string, graphID rdf.IRI, quads []rdf.Quad) []rdf.Quad {
	registry := e.mat.Registry()
	out := make([]rdf.Quad, 0, len(quads))
	dropped := 0
	for _, q := range quads {
		if q.Graph == "" {
			q.Graph = graphID
		}
		if p, ok := q.Predicate.(rdf.IRI); ok && registry.IsShortcut(p) {
			dropped++
			continue
		}
		out = append(out, q)
	}
	if dropped > 0 {
		e.logger.Printf("Dropped %d materialized-predicate quads from operation on space=%s", dropped, spaceID)
	}
	return rdf.DedupeQuads(out)
}
