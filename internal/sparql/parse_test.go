package sparql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vital-ai/vital-graph/internal/rdf"
)

const (
	g1 = rdf.IRI("http://example.org/graph/g1")
	g2 = rdf.IRI("http://example.org/graph/g2")
)

// noQuery fails the test if the parser issues a read query.
func noQuery(t *testing.T) QueryFunc {
	t.Helper()
	return func(ctx context.Context, q string) ([]Binding, error) {
		t.Fatalf("unexpected read query: %s", q)
		return nil, nil
	}
}

// fixedRows returns the given solution rows and records the query text.
func fixedRows(rows []Binding, got *string) QueryFunc {
	return func(ctx context.Context, q string) ([]Binding, error) {
		if got != nil {
			*got = q
		}
		return rows, nil
	}
}

func TestParseInsertData(t *testing.T) {
	text := `INSERT DATA {
		<http://example.org/x> <http://example.org/age> 30 .
		<http://example.org/x> <http://example.org/name> "Alex" .
	}`

	op, err := Parse(context.Background(), text, g1, noQuery(t))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if op.Kind != rdf.OpInsert {
		t.Errorf("kind = %s, want insert", op.Kind)
	}
	if len(op.InsertSet) != 2 || len(op.DeleteSet) != 0 {
		t.Fatalf("insert=%d delete=%d, want 2/0", len(op.InsertSet), len(op.DeleteSet))
	}
	want := rdf.NewQuad(
		rdf.IRI("http://example.org/x"),
		rdf.IRI("http://example.org/age"),
		rdf.NewTypedLiteral("30", rdf.XSDInteger),
		g1,
	)
	if !op.InsertSet[0].Equal(want) {
		t.Errorf("first quad = %s, want %s", op.InsertSet[0], want)
	}
}

func TestParseInsertDataExplicitGraph(t *testing.T) {
	text := `INSERT DATA {
		GRAPH <http://example.org/graph/g2> {
			<http://example.org/s> <http://example.org/p> <http://example.org/o> .
		}
	}`

	op, err := Parse(context.Background(), text, g1, noQuery(t))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if op.InsertSet[0].Graph != g2 {
		t.Errorf("graph = %s, want %s", op.InsertSet[0].Graph, g2)
	}
}

func TestParseDeleteData(t *testing.T) {
	text := `DELETE DATA { <http://example.org/s> <http://example.org/p> "v"@en . }`

	op, err := Parse(context.Background(), text, g1, noQuery(t))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if op.Kind != rdf.OpDelete {
		t.Errorf("kind = %s, want delete", op.Kind)
	}
	if len(op.DeleteSet) != 1 {
		t.Fatalf("delete set size = %d, want 1", len(op.DeleteSet))
	}
	if !op.DeleteSet[0].Object.Equal(rdf.NewLangLiteral("v", "en")) {
		t.Errorf("object = %s, want language-tagged literal", op.DeleteSet[0].Object)
	}
}

func TestParsePatternBoundDelete(t *testing.T) {
	// Three entities with ages; the condition keeps those over 28.
	text := `DELETE { ?person <http://example.org/age> ?age }
	WHERE { ?person <http://example.org/age> ?age . FILTER (?age > 28) }`

	rows := []Binding{
		{"person": rdf.IRI("http://example.org/p1"), "age": rdf.NewTypedLiteral("30", rdf.XSDInteger)},
		{"person": rdf.IRI("http://example.org/p3"), "age": rdf.NewTypedLiteral("35", rdf.XSDInteger)},
	}
	var query string
	op, err := Parse(context.Background(), text, g1, fixedRows(rows, &query))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// The read query projects the union of pattern variables and scopes the
	// condition to the hinted graph.
	for _, want := range []string{"SELECT DISTINCT", "?age", "?person", "GRAPH <http://example.org/graph/g1>", "FILTER (?age > 28)"} {
		if !strings.Contains(query, want) {
			t.Errorf("read query missing %q:\n%s", want, query)
		}
	}

	if op.Kind != rdf.OpDelete {
		t.Errorf("kind = %s, want delete", op.Kind)
	}
	if len(op.DeleteSet) != 2 {
		t.Fatalf("delete set size = %d, want 2", len(op.DeleteSet))
	}
	want := rdf.NewQuad(
		rdf.IRI("http://example.org/p1"),
		rdf.IRI("http://example.org/age"),
		rdf.NewTypedLiteral("30", rdf.XSDInteger),
		g1,
	)
	if !rdf.ContainsQuad(op.DeleteSet, want) {
		t.Errorf("delete set missing %s", want)
	}
}

func TestParseWrapsConditionWithGraphLikeIRI(t *testing.T) {
	// GRAPH inside an IRI is data, not a keyword: the condition still gets
	// scoped to the hinted graph.
	text := `DELETE { ?s <http://example.org/GRAPH/p> ?o }
	WHERE { ?s <http://example.org/GRAPH/p> ?o }`

	rows := []Binding{
		{"s": rdf.IRI("http://example.org/s1"), "o": rdf.IRI("http://example.org/o1")},
	}
	var query string
	op, err := Parse(context.Background(), text, g1, fixedRows(rows, &query))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !strings.Contains(query, "GRAPH <http://example.org/graph/g1>") {
		t.Errorf("read query not scoped to hinted graph:\n%s", query)
	}
	if len(op.DeleteSet) != 1 || op.DeleteSet[0].Graph != g1 {
		t.Errorf("unexpected delete set: %+v", op.DeleteSet)
	}
}

func TestContainsGraphKeyword(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`GRAPH <http://example.org/g> { ?s ?p ?o }`, true},
		{`graph <http://example.org/g> { ?s ?p ?o }`, true},
		{`?s ?p ?o`, false},
		{`?s <http://example.org/GRAPH/p> ?o`, false},
		{`?s ?p "about GRAPH syntax"`, false},
		{`?s ?p 'GRAPH'`, false},
		{`?s ?p "quoted \" GRAPH"`, false},
		{`?s <http://example.org/subgraph> ?o`, false},
		{`?s ?p "lit" . GRAPH <http://example.org/g> { ?s2 ?p2 ?o2 }`, true},
	}
	for _, tt := range tests {
		if got := containsGraphKeyword(tt.raw); got != tt.want {
			t.Errorf("containsGraphKeyword(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseDeleteInsertSharedCondition(t *testing.T) {
	text := `DELETE { <http://example.org/x> <http://example.org/age> ?old }
	INSERT { <http://example.org/x> <http://example.org/age> 31 }
	WHERE { <http://example.org/x> <http://example.org/age> ?old }`

	rows := []Binding{{"old": rdf.NewTypedLiteral("30", rdf.XSDInteger)}}
	op, err := Parse(context.Background(), text, g1, fixedRows(rows, nil))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if op.Kind != rdf.OpDeleteInsert {
		t.Errorf("kind = %s, want delete_insert", op.Kind)
	}
	if len(op.DeleteSet) != 1 || len(op.InsertSet) != 1 {
		t.Fatalf("delete=%d insert=%d, want 1/1", len(op.DeleteSet), len(op.InsertSet))
	}
	if !op.DeleteSet[0].Object.Equal(rdf.NewTypedLiteral("30", rdf.XSDInteger)) {
		t.Errorf("deleted object = %s, want 30", op.DeleteSet[0].Object)
	}
	if !op.InsertSet[0].Object.Equal(rdf.NewTypedLiteral("31", rdf.XSDInteger)) {
		t.Errorf("inserted object = %s, want 31", op.InsertSet[0].Object)
	}
}

func TestParseDeleteInsertNoMatchIsEmpty(t *testing.T) {
	// Concrete insert templates are still condition-gated: zero solutions
	// means nothing is inserted or deleted.
	text := `DELETE { <http://example.org/x> <http://example.org/age> ?old }
	INSERT { <http://example.org/x> <http://example.org/age> 31 }
	WHERE { <http://example.org/x> <http://example.org/age> ?old }`

	_, err := Parse(context.Background(), text, g1, fixedRows(nil, nil))
	var empty *EmptyOperationError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyOperationError, got %v", err)
	}
}

func TestParseDeleteWhereShorthand(t *testing.T) {
	text := `DELETE WHERE { GRAPH <http://example.org/graph/g1> { ?s <http://example.org/p1> ?o } }`

	rows := []Binding{
		{"s": rdf.IRI("http://example.org/s1"), "o": rdf.IRI("http://example.org/o1")},
	}
	var query string
	op, err := Parse(context.Background(), text, "", fixedRows(rows, &query))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !strings.Contains(query, "GRAPH <http://example.org/graph/g1>") {
		t.Errorf("read query should scope to the pattern's graph:\n%s", query)
	}
	if len(op.DeleteSet) != 1 || op.DeleteSet[0].Graph != g1 {
		t.Fatalf("unexpected delete set: %v", op.DeleteSet)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"unknown verb", "UPSERT DATA { }"},
		{"unterminated block", "INSERT DATA { <http://example.org/s> <http://example.org/p> <http://example.org/o> ."},
		{"variable in data block", "INSERT DATA { ?s <http://example.org/p> <http://example.org/o> . }"},
		{"missing where", "DELETE { ?s <http://example.org/p> ?o }"},
		{"trailing garbage", "DELETE DATA { <http://example.org/s> <http://example.org/p> \"v\" . } extra"},
		{"insert where unsupported", "INSERT { ?s <http://example.org/p> ?o } WHERE { ?s <http://example.org/p> ?o }"},
		{"bad iri", "INSERT DATA { <bad iri> <http://example.org/p> \"v\" . }"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(context.Background(), tc.text, g1, nil)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("expected ParseError, got %v", err)
			}
		})
	}
}

func TestParseEmptyOperation(t *testing.T) {
	_, err := Parse(context.Background(), "INSERT DATA { }", g1, nil)
	var empty *EmptyOperationError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyOperationError, got %v", err)
	}
}

func TestParseUnresolvedPattern(t *testing.T) {
	failing := func(ctx context.Context, q string) ([]Binding, error) {
		return nil, fmt.Errorf("endpoint unreachable")
	}
	text := `DELETE { ?s <http://example.org/p> ?o } WHERE { ?s <http://example.org/p> ?o }`
	_, err := Parse(context.Background(), text, g1, failing)
	var unresolved *UnresolvedPatternError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedPatternError, got %v", err)
	}
}

func TestParseNoGraphHint(t *testing.T) {
	_, err := Parse(context.Background(), "INSERT DATA { <http://example.org/s> <http://example.org/p> \"v\" . }", "", nil)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError when graph hint is missing, got %v", err)
	}
}

func TestParseDedupesResolvedQuads(t *testing.T) {
	// Two solution rows that bind the same quad must not double it.
	text := `DELETE { ?s <http://example.org/p> <http://example.org/o> }
	WHERE { ?s <http://example.org/p> ?v }`

	rows := []Binding{
		{"s": rdf.IRI("http://example.org/s1"), "v": rdf.NewLiteral("a")},
		{"s": rdf.IRI("http://example.org/s1"), "v": rdf.NewLiteral("b")},
	}
	op, err := Parse(context.Background(), text, g1, fixedRows(rows, nil))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(op.DeleteSet) != 1 {
		t.Errorf("delete set size = %d, want 1 after dedupe", len(op.DeleteSet))
	}
}
