package materialize

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/vital-ai/vital-graph/internal/rdf"
	"github.com/vital-ai/vital-graph/internal/sparql"
	"github.com/vital-ai/vital-graph/internal/vocab"
)

// fakeGraph records updates and serves canned counts for consistency queries.
type fakeGraph struct {
	updates   []string
	queries   []string
	counts    []int
	updateErr error
	queryErr  error
}

func (f *fakeGraph) Update(ctx context.Context, dataset, updateText string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, updateText)
	return nil
}

func (f *fakeGraph) QueryBindings(ctx context.Context, dataset, queryText string) ([]sparql.Binding, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.queries = append(f.queries, queryText)
	n := 0
	if len(f.counts) > 0 {
		n = f.counts[0]
		f.counts = f.counts[1:]
	}
	return []sparql.Binding{
		{"n": rdf.NewTypedLiteral(strconv.Itoa(n), rdf.XSDInteger)},
	}, nil
}

func TestManagerApply(t *testing.T) {
	graph := &fakeGraph{}
	m := New(NewRegistry(), graph, nil)

	insertSet := edgeQuads("http://example.org/edge1", "http://example.org/entity1",
		"http://example.org/frame1", vocab.EdgeTypeEntityFrame)

	if err := m.Apply(context.Background(), "space1", insertSet, nil); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(graph.updates) != 1 {
		t.Fatalf("expected 1 graph update, got %d", len(graph.updates))
	}
	if !strings.Contains(graph.updates[0], "INSERT DATA") {
		t.Errorf("update text missing INSERT DATA:\n%s", graph.updates[0])
	}
}

func TestManagerApplySkipsUnrelated(t *testing.T) {
	graph := &fakeGraph{}
	m := New(NewRegistry(), graph, nil)

	insertSet := []rdf.Quad{
		{Subject: rdf.IRI("http://example.org/p"), Predicate: rdf.IRI("http://example.org/name"),
			Object: rdf.NewLiteral("Bob"), Graph: testGraph},
	}
	if err := m.Apply(context.Background(), "space1", insertSet, nil); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(graph.updates) != 0 {
		t.Errorf("expected no graph round trip, got %d updates", len(graph.updates))
	}
}

func TestManagerApplySurfacesGraphError(t *testing.T) {
	graph := &fakeGraph{updateErr: errors.New("store down")}
	m := New(NewRegistry(), graph, nil)

	insertSet := edgeQuads("http://example.org/edge1", "http://example.org/a",
		"http://example.org/b", vocab.EdgeTypeFrameSlot)
	err := m.Apply(context.Background(), "space1", insertSet, nil)
	if err == nil || !strings.Contains(err.Error(), "store down") {
		t.Fatalf("expected wrapped graph error, got %v", err)
	}
}

func TestManagerCheckConsistency(t *testing.T) {
	// Two counts per kind: missing then orphans.
	graph := &fakeGraph{counts: []int{0, 0, 2, 1, 0, 0}}
	m := New(NewRegistry(), graph, nil)

	report, err := m.CheckConsistency(context.Background(), "space1")
	if err != nil {
		t.Fatalf("CheckConsistency failed: %v", err)
	}
	if len(report.Kinds) != 3 {
		t.Fatalf("expected 3 kind reports, got %d", len(report.Kinds))
	}
	if report.Clean() {
		t.Error("report with drift reported clean")
	}
	if report.Kinds[1].MissingShortcuts != 2 || report.Kinds[1].OrphanShortcuts != 1 {
		t.Errorf("wrong counts for kind %s: %+v", report.Kinds[1].Kind, report.Kinds[1])
	}
	if len(graph.queries) != 6 {
		t.Errorf("expected 6 count queries, got %d", len(graph.queries))
	}
	for _, q := range graph.queries {
		if !strings.Contains(q, "SELECT (COUNT(*) AS ?n)") {
			t.Errorf("not a count query:\n%s", q)
		}
		if !strings.Contains(q, "FILTER NOT EXISTS") {
			t.Errorf("drift pattern missing negation:\n%s", q)
		}
	}

	graph.counts = []int{0, 0, 0, 0, 0, 0}
	report, err = m.CheckConsistency(context.Background(), "space1")
	if err != nil {
		t.Fatalf("CheckConsistency failed: %v", err)
	}
	if !report.Clean() {
		t.Error("zero-drift report not clean")
	}
}

func TestManagerCheckConsistencySurfacesQueryError(t *testing.T) {
	graph := &fakeGraph{queryErr: errors.New("bad endpoint")}
	m := New(NewRegistry(), graph, nil)
	if _, err := m.CheckConsistency(context.Background(), "space1"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestManagerRepair(t *testing.T) {
	graph := &fakeGraph{}
	m := New(NewRegistry(), graph, nil)

	if err := m.Repair(context.Background(), "space1"); err != nil {
		t.Fatalf("Repair failed: %v", err)
	}
	if len(graph.updates) != 1 {
		t.Fatalf("expected 1 combined update, got %d", len(graph.updates))
	}
	text := graph.updates[0]
	// One INSERT and one DELETE per kind, both directions of drift.
	if got := strings.Count(text, "INSERT {"); got != 3 {
		t.Errorf("expected 3 INSERT statements, got %d", got)
	}
	if got := strings.Count(text, "DELETE {"); got != 3 {
		t.Errorf("expected 3 DELETE statements, got %d", got)
	}
	if !strings.Contains(text, vocab.ShortcutEntityFrame.String()) {
		t.Errorf("entity-frame shortcut missing from repair:\n%s", text)
	}
}
