package materialize

import (
	"strings"
	"testing"

	"github.com/vital-ai/vital-graph/internal/rdf"
	"github.com/vital-ai/vital-graph/internal/vocab"
)

func testEdge(uri, src, dst rdf.IRI, kind EdgeKind) Edge {
	return Edge{URI: uri, Kind: kind, Source: src, Destination: dst, Graph: testGraph}
}

func TestBuildUpdateCombinesBlocks(t *testing.T) {
	r := NewRegistry()
	ef, _ := r.KindForType(vocab.EdgeTypeEntityFrame)
	cf, _ := r.KindForType(vocab.EdgeTypeChildFrame)

	inserted := []Edge{testEdge("http://example.org/e1", "http://example.org/entity1", "http://example.org/frame1", ef)}
	deleted := []Edge{testEdge("http://example.org/e2", "http://example.org/frame1", "http://example.org/frame2", cf)}
	nodes := []DeletedNode{{URI: "http://example.org/frame2", Graph: testGraph}}

	text := r.BuildUpdate(inserted, deleted, nodes)

	delIdx := strings.Index(text, "DELETE DATA")
	insIdx := strings.Index(text, "INSERT DATA")
	cleanIdx := strings.Index(text, "DELETE {")
	if delIdx < 0 || insIdx < 0 || cleanIdx < 0 {
		t.Fatalf("missing block in update text:\n%s", text)
	}
	// Retractions before derivations, cleanup last.
	if !(delIdx < insIdx && insIdx < cleanIdx) {
		t.Errorf("blocks out of order:\n%s", text)
	}
	if strings.Count(text, " ;\n") != 2 {
		t.Errorf("expected 2 statement separators:\n%s", text)
	}

	if !strings.Contains(text, "<http://example.org/entity1> <"+string(vocab.ShortcutEntityFrame)+"> <http://example.org/frame1>") {
		t.Errorf("inserted shortcut missing:\n%s", text)
	}
	if !strings.Contains(text, "<http://example.org/frame1> <"+string(vocab.ShortcutChildFrame)+"> <http://example.org/frame2>") {
		t.Errorf("deleted shortcut missing:\n%s", text)
	}
	if !strings.Contains(text, "GRAPH "+testGraph.String()) {
		t.Errorf("graph scoping missing:\n%s", text)
	}
}

func TestBuildUpdateEmpty(t *testing.T) {
	r := NewRegistry()
	if text := r.BuildUpdate(nil, nil, nil); text != "" {
		t.Errorf("expected empty text, got:\n%s", text)
	}
}

func TestBuildUpdateDedupesShortcuts(t *testing.T) {
	r := NewRegistry()
	ef, _ := r.KindForType(vocab.EdgeTypeEntityFrame)

	// Two distinct edges implying the same shortcut triple.
	inserted := []Edge{
		testEdge("http://example.org/e1", "http://example.org/a", "http://example.org/b", ef),
		testEdge("http://example.org/e2", "http://example.org/a", "http://example.org/b", ef),
	}
	text := r.BuildUpdate(inserted, nil, nil)
	triple := "<http://example.org/a> <" + string(vocab.ShortcutEntityFrame) + "> <http://example.org/b>"
	if strings.Count(text, triple) != 1 {
		t.Errorf("shortcut not deduplicated:\n%s", text)
	}
}

func TestCleanupBlockOneBranchPerPair(t *testing.T) {
	r := NewRegistry()
	nodes := []DeletedNode{
		{URI: "http://example.org/n1", Graph: testGraph},
		{URI: "http://example.org/n2", Graph: testGraph},
	}
	text := r.cleanupBlock(nodes)

	// 2 nodes x 3 shortcut predicates, joined by UNION.
	if got := strings.Count(text, "UNION"); got != 5 {
		t.Errorf("expected 5 UNION keywords, got %d:\n%s", got, text)
	}
	// Each branch binds its own subject variable so unbound template
	// triples are skipped rather than failing the whole delete.
	for _, v := range []string{"?s0", "?s1", "?s2", "?s3", "?s4", "?s5"} {
		if !strings.Contains(text, v) {
			t.Errorf("branch variable %s missing:\n%s", v, text)
		}
	}
	if !strings.Contains(text, "<"+string(vocab.ShortcutFrameSlot)+"> <http://example.org/n2>") {
		t.Errorf("shortcut-to-deleted-node pattern missing:\n%s", text)
	}
}
