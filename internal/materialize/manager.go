package materialize

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/vital-ai/vital-graph/internal/rdf"
	"github.com/vital-ai/vital-graph/internal/sparql"
	"github.com/vital-ai/vital-graph/internal/vocab"
)

// GraphStore is the slice of the graph-store client the manager needs.
type GraphStore interface {
	Update(ctx context.Context, dataset, updateText string) error
	QueryBindings(ctx context.Context, dataset, queryText string) ([]sparql.Binding, error)
}

// Manager derives and retracts shortcut triples after each committed
// operation, and offers the consistency-check and repair path that covers
// sync failures and the in-place reassignment gap.
type Manager struct {
	registry *Registry
	graph    GraphStore
	logger   *log.Logger
}

// New creates a Manager. If logger is nil, a default logger writing to
// stderr is used.
func New(registry *Registry, graph GraphStore, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "[materialize] ", log.LstdFlags)
	}
	return &Manager{registry: registry, graph: graph, logger: logger}
}

// Registry exposes the canonical edge kind table.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Apply observes the insert/delete sets of a committed operation and applies
// all implied shortcut changes in one graph-store round trip. Operations that
// touch no tracked edges and delete no nodes cost nothing.
func (m *Manager) Apply(ctx context.Context, spaceID string, insertSet, deleteSet []rdf.Quad) error {
	insertedEdges := m.registry.DetectEdges(insertSet)
	deletedEdges := m.registry.DetectEdges(deleteSet)
	deletedNodes := DetectDeletedNodes(deleteSet)

	if len(insertedEdges) == 0 && len(deletedEdges) == 0 && len(deletedNodes) == 0 {
		return nil
	}

	text := m.registry.BuildUpdate(insertedEdges, deletedEdges, deletedNodes)
	if text == "" {
		return nil
	}
	if err := m.graph.Update(ctx, spaceID, text); err != nil {
		return fmt.Errorf("failed to apply materialization update: %w", err)
	}
	m.logger.Printf("Materialized space=%s edges+%d -%d nodes-%d",
		spaceID, len(insertedEdges), len(deletedEdges), len(deletedNodes))
	return nil
}

// KindReport is the consistency result for one edge kind.
type KindReport struct {
	Kind string `json:"kind"`

	// MissingShortcuts counts live edges with no shortcut triple.
	MissingShortcuts int `json:"missing_shortcuts"`

	// OrphanShortcuts counts shortcut triples with no live edge.
	OrphanShortcuts int `json:"orphan_shortcuts"`
}

// Report is the consistency result across all tracked kinds.
type Report struct {
	SpaceID string       `json:"space_id"`
	Kinds   []KindReport `json:"kinds"`
}

// Clean reports whether both stores agree on every kind.
func (r *Report) Clean() bool {
	for _, k := range r.Kinds {
		if k.MissingShortcuts != 0 || k.OrphanShortcuts != 0 {
			return false
		}
	}
	return true
}

// CheckConsistency counts, per kind, edges missing their shortcut and
// shortcuts missing their edge. A non-clean report means the graph store
// drifted (failed sync, in-place reassignment) and Repair or a rebuild is
// due.
func (m *Manager) CheckConsistency(ctx context.Context, spaceID string) (*Report, error) {
	report := &Report{SpaceID: spaceID}
	for _, kind := range m.registry.Kinds() {
		missing, err := m.countQuery(ctx, spaceID, missingShortcutPattern(kind))
		if err != nil {
			return nil, fmt.Errorf("kind %s: %w", kind.Name, err)
		}
		orphans, err := m.countQuery(ctx, spaceID, orphanShortcutPattern(kind))
		if err != nil {
			return nil, fmt.Errorf("kind %s: %w", kind.Name, err)
		}
		report.Kinds = append(report.Kinds, KindReport{
			Kind:             kind.Name,
			MissingShortcuts: missing,
			OrphanShortcuts:  orphans,
		})
	}
	return report, nil
}

// Repair closes both drift directions for every kind in one update: derive
// shortcuts for edges that lack one, retract shortcuts whose edge is gone.
func (m *Manager) Repair(ctx context.Context, spaceID string) error {
	var parts []string
	for _, kind := range m.registry.Kinds() {
		insert := "INSERT { GRAPH ?g { ?s " + kind.Shortcut.String() + " ?d . } }\nWHERE {\n" +
			missingShortcutPattern(kind) + "\n}"
		remove := "DELETE { GRAPH ?g { ?s " + kind.Shortcut.String() + " ?d . } }\nWHERE {\n" +
			orphanShortcutPattern(kind) + "\n}"
		parts = append(parts, insert, remove)
	}
	text := strings.Join(parts, " ;\n")
	if err := m.graph.Update(ctx, spaceID, text); err != nil {
		return fmt.Errorf("failed to repair space %s: %w", spaceID, err)
	}
	m.logger.Printf("Repaired shortcuts for space=%s", spaceID)
	return nil
}

// missingShortcutPattern matches live edges of the kind whose shortcut is
// absent, binding ?g ?s ?d.
func missingShortcutPattern(kind EdgeKind) string {
	return "  GRAPH ?g {\n" +
		"    ?e " + vocab.TypeMarker.String() + " " + kind.EdgeType.String() + " .\n" +
		"    ?e " + kind.Source.String() + " ?s .\n" +
		"    ?e " + kind.Destination.String() + " ?d .\n" +
		"    FILTER NOT EXISTS { ?s " + kind.Shortcut.String() + " ?d . }\n" +
		"  }"
}

// orphanShortcutPattern matches shortcut triples of the kind whose edge no
// longer exists, binding ?g ?s ?d.
func orphanShortcutPattern(kind EdgeKind) string {
	return "  GRAPH ?g {\n" +
		"    ?s " + kind.Shortcut.String() + " ?d .\n" +
		"    FILTER NOT EXISTS {\n" +
		"      ?e " + vocab.TypeMarker.String() + " " + kind.EdgeType.String() + " .\n" +
		"      ?e " + kind.Source.String() + " ?s .\n" +
		"      ?e " + kind.Destination.String() + " ?d .\n" +
		"    }\n" +
		"  }"
}

// countQuery runs "SELECT (COUNT(*) AS ?n) WHERE { pattern }" and parses the
// single binding.
func (m *Manager) countQuery(ctx context.Context, spaceID, pattern string) (int, error) {
	query := "SELECT (COUNT(*) AS ?n) WHERE {\n" + pattern + "\n}"
	rows, err := m.graph.QueryBindings(ctx, spaceID, query)
	if err != nil {
		return 0, fmt.Errorf("consistency query failed: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	term, ok := rows[0]["n"]
	if !ok {
		return 0, fmt.Errorf("consistency query returned no count binding")
	}
	lit, ok := term.(rdf.Literal)
	if !ok {
		return 0, fmt.Errorf("count binding is not a literal: %s", term)
	}
	n, err := strconv.Atoi(lit.Value)
	if err != nil {
		return 0, fmt.Errorf("count binding %q is not a number: %w", lit.Value, err)
	}
	return n, nil
}
