package materialize

import (
	"testing"

	"github.com/vital-ai/vital-graph/internal/rdf"
	"github.com/vital-ai/vital-graph/internal/vocab"
)

const testGraph = rdf.IRI("http://example.org/graph/main")

// edgeQuads returns the three quads that make up a complete edge instance.
func edgeQuads(edge, src, dst rdf.IRI, edgeType rdf.IRI) []rdf.Quad {
	return []rdf.Quad{
		{Subject: edge, Predicate: vocab.TypeMarker, Object: edgeType, Graph: testGraph},
		{Subject: edge, Predicate: vocab.EdgeSource, Object: src, Graph: testGraph},
		{Subject: edge, Predicate: vocab.EdgeDestination, Object: dst, Graph: testGraph},
	}
}

func TestDetectEdges(t *testing.T) {
	r := NewRegistry()

	quads := edgeQuads("http://example.org/edge1", "http://example.org/entity1",
		"http://example.org/frame1", vocab.EdgeTypeEntityFrame)
	// Unrelated quads in the same set must not interfere.
	quads = append(quads,
		rdf.Quad{Subject: rdf.IRI("http://example.org/entity1"), Predicate: vocab.TypeMarker,
			Object: rdf.IRI("http://example.org/Person"), Graph: testGraph},
		rdf.Quad{Subject: rdf.IRI("http://example.org/entity1"), Predicate: rdf.IRI("http://example.org/name"),
			Object: rdf.NewLiteral("Alice"), Graph: testGraph},
	)

	edges := r.DetectEdges(quads)
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	e := edges[0]
	if e.URI != "http://example.org/edge1" {
		t.Errorf("wrong edge URI: %s", e.URI)
	}
	if e.Kind.Name != "entity-frame" {
		t.Errorf("wrong kind: %s", e.Kind.Name)
	}

	sc := e.Shortcut()
	want := rdf.Quad{
		Subject:   rdf.IRI("http://example.org/entity1"),
		Predicate: vocab.ShortcutEntityFrame,
		Object:    rdf.IRI("http://example.org/frame1"),
		Graph:     testGraph,
	}
	if !sc.Equal(want) {
		t.Errorf("wrong shortcut quad: %s", sc.String())
	}
}

func TestDetectEdgesIgnoresFragments(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name  string
		quads []rdf.Quad
	}{
		{
			"type only",
			[]rdf.Quad{{Subject: rdf.IRI("http://example.org/e"), Predicate: vocab.TypeMarker,
				Object: vocab.EdgeTypeFrameSlot, Graph: testGraph}},
		},
		{
			"missing destination",
			[]rdf.Quad{
				{Subject: rdf.IRI("http://example.org/e"), Predicate: vocab.TypeMarker,
					Object: vocab.EdgeTypeFrameSlot, Graph: testGraph},
				{Subject: rdf.IRI("http://example.org/e"), Predicate: vocab.EdgeSource,
					Object: rdf.IRI("http://example.org/f"), Graph: testGraph},
			},
		},
		{
			"pointers without tracked type",
			[]rdf.Quad{
				{Subject: rdf.IRI("http://example.org/e"), Predicate: vocab.EdgeSource,
					Object: rdf.IRI("http://example.org/f"), Graph: testGraph},
				{Subject: rdf.IRI("http://example.org/e"), Predicate: vocab.EdgeDestination,
					Object: rdf.IRI("http://example.org/s"), Graph: testGraph},
			},
		},
		{
			"literal type object",
			[]rdf.Quad{
				{Subject: rdf.IRI("http://example.org/e"), Predicate: vocab.TypeMarker,
					Object: rdf.NewLiteral(string(vocab.EdgeTypeFrameSlot)), Graph: testGraph},
				{Subject: rdf.IRI("http://example.org/e"), Predicate: vocab.EdgeSource,
					Object: rdf.IRI("http://example.org/f"), Graph: testGraph},
				{Subject: rdf.IRI("http://example.org/e"), Predicate: vocab.EdgeDestination,
					Object: rdf.IRI("http://example.org/s"), Graph: testGraph},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if edges := r.DetectEdges(tt.quads); len(edges) != 0 {
				t.Errorf("fragment detected as edge: %+v", edges)
			}
		})
	}
}

func TestDetectEdgesDeterministicOrder(t *testing.T) {
	r := NewRegistry()

	var quads []rdf.Quad
	quads = append(quads, edgeQuads("http://example.org/edgeC", "http://example.org/s1",
		"http://example.org/d1", vocab.EdgeTypeChildFrame)...)
	quads = append(quads, edgeQuads("http://example.org/edgeA", "http://example.org/s2",
		"http://example.org/d2", vocab.EdgeTypeEntityFrame)...)
	quads = append(quads, edgeQuads("http://example.org/edgeB", "http://example.org/s3",
		"http://example.org/d3", vocab.EdgeTypeFrameSlot)...)

	for i := 0; i < 10; i++ {
		edges := r.DetectEdges(quads)
		if len(edges) != 3 {
			t.Fatalf("expected 3 edges, got %d", len(edges))
		}
		for j, want := range []rdf.IRI{"http://example.org/edgeA", "http://example.org/edgeB", "http://example.org/edgeC"} {
			if edges[j].URI != want {
				t.Fatalf("edge %d = %s, want %s", j, edges[j].URI, want)
			}
		}
	}
}

func TestDetectDeletedNodes(t *testing.T) {
	node := rdf.IRI("http://example.org/entity1")
	typeQuad := rdf.Quad{Subject: node, Predicate: vocab.TypeMarker,
		Object: rdf.IRI("http://example.org/Person"), Graph: testGraph}
	identityQuad := rdf.Quad{Subject: node, Predicate: vocab.IdentityMarker,
		Object: rdf.NewLiteral(string(node)), Graph: testGraph}
	propQuad := rdf.Quad{Subject: node, Predicate: rdf.IRI("http://example.org/name"),
		Object: rdf.NewLiteral("Alice"), Graph: testGraph}

	tests := []struct {
		name      string
		deleteSet []rdf.Quad
		want      int
	}{
		{"both markers", []rdf.Quad{typeQuad, identityQuad}, 1},
		{"both markers plus properties", []rdf.Quad{propQuad, typeQuad, identityQuad}, 1},
		{"type only", []rdf.Quad{typeQuad, propQuad}, 0},
		{"identity only", []rdf.Quad{identityQuad, propQuad}, 0},
		{"property update", []rdf.Quad{propQuad}, 0},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := DetectDeletedNodes(tt.deleteSet)
			if len(nodes) != tt.want {
				t.Fatalf("got %d deleted nodes, want %d", len(nodes), tt.want)
			}
			if tt.want == 1 {
				if nodes[0].URI != node || nodes[0].Graph != testGraph {
					t.Errorf("wrong deleted node: %+v", nodes[0])
				}
			}
		})
	}
}
