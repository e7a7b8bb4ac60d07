package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/vital-ai/vital-graph/internal/rdf"
)

// rebuildBatchSize bounds the size of one INSERT DATA update during rebuild.
const rebuildBatchSize = 500

// syncGraph replays a committed operation against the graph store: the
// delete half first, then the insert half, mirroring the relational order.
// Both halves travel in one update text, so the graph store applies them in
// one request.
func (e *Engine) syncGraph(ctx context.Context, spaceID string, deleteSet, insertSet []rdf.Quad) error {
	var parts []string
	if block := syncBlock("DELETE DATA", deleteSet); block != "" {
		parts = append(parts, block)
	}
	if block := syncBlock("INSERT DATA", insertSet); block != "" {
		parts = append(parts, block)
	}
	if len(parts) == 0 {
		return nil
	}
	if err := e.graph.Update(ctx, spaceID, strings.Join(parts, " ;\n")); err != nil {
		return fmt.Errorf("failed to sync graph store: %w", err)
	}
	return nil
}

// syncBlock renders one data block grouping quads by graph, or "" for an
// empty set.
func syncBlock(verb string, quads []rdf.Quad) string {
	if len(quads) == 0 {
		return ""
	}
	byGraph := make(map[rdf.IRI][]rdf.Quad)
	var order []rdf.IRI
	for _, q := range quads {
		if _, ok := byGraph[q.Graph]; !ok {
			order = append(order, q.Graph)
		}
		byGraph[q.Graph] = append(byGraph[q.Graph], q)
	}

	var b strings.Builder
	b.WriteString(verb)
	b.WriteString(" {\n")
	for _, g := range order {
		b.WriteString("  GRAPH ")
		b.WriteString(g.String())
		b.WriteString(" {\n")
		b.WriteString(rdf.FormatTriples(byGraph[g]))
		b.WriteString("  }\n")
	}
	b.WriteString("}")
	return b.String()
}

// RebuildGraphStore discards the graph copy of a space and rebuilds it from
// the relational store, the authority. Asserted quads are streamed back in
// batches, then the materializer re-derives every shortcut triple. This is
// the recovery path for accumulated drift and the strongest consistency
// guarantee available.
func (e *Engine) RebuildGraphStore(ctx context.Context, spaceID string) error {
	e.logger.Printf("Rebuilding graph store for space=%s", spaceID)

	if err := e.graph.DropDataset(ctx, spaceID); err != nil {
		return fmt.Errorf("failed to drop dataset: %w", err)
	}
	if err := e.graph.CreateDataset(ctx, spaceID); err != nil {
		return fmt.Errorf("failed to recreate dataset: %w", err)
	}

	var batch []rdf.Quad
	total := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := e.graph.Update(ctx, spaceID, syncBlock("INSERT DATA", batch)); err != nil {
			return fmt.Errorf("failed to load batch at quad %d: %w", total, err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	err := e.rel.AllQuads(ctx, spaceID, func(q rdf.Quad) error {
		batch = append(batch, q)
		if len(batch) >= rebuildBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to stream quads: %w", err)
	}
	if err := flush(); err != nil {
		return err
	}

	if err := e.mat.Repair(ctx, spaceID); err != nil {
		return fmt.Errorf("failed to rederive shortcuts: %w", err)
	}

	e.logger.Printf("Rebuilt space=%s: %d quads loaded", spaceID, total)
	return nil
}

// CheckConsistency reports shortcut drift for a space.
func (e *Engine) CheckConsistency(ctx context.Context, spaceID string) (*ConsistencyReport, error) {
	report, err := e.mat.CheckConsistency(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	e.events.ConsistencyChecked(spaceID, report.Clean())
	return report, nil
}

// Repair closes shortcut drift for a space in place.
func (e *Engine) Repair(ctx context.Context, spaceID string) error {
	return e.mat.Repair(ctx, spaceID)
}
