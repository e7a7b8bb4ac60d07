// Package sparql implements the declarative update subset the engine accepts
// and the shared read-query builder.
//
// Four update shapes are recognized:
//
//	INSERT DATA { ... }
//	DELETE DATA { ... }
//	DELETE { ... } WHERE { ... }            (also the DELETE WHERE { ... } shorthand)
//	DELETE { ... } INSERT { ... } WHERE { ... }
//
// Pattern-bound forms are resolved query-before-delete: the parser never
// guesses deletions from the text alone. It builds one SELECT over the union
// of all template variables plus the WHERE condition, executes it against the
// graph store, and binds each solution row into concrete quads. This is
// required because the relational store cannot resolve open variables without
// materializing them first.
package sparql

import (
	"context"
	"fmt"
	"strings"

	"github.com/vital-ai/vital-graph/internal/rdf"
)

// Binding is one solution row of a read query: variable name to bound term.
type Binding = map[string]rdf.Term

// QueryFunc executes a read query against the graph store and returns its
// solution rows. The parser uses it to resolve pattern-bound deletes.
type QueryFunc func(ctx context.Context, queryText string) ([]Binding, error)

// Parse turns an update statement into a fully resolved Operation.
//
// graphHint is the graph applied to any triple the text does not scope with
// an explicit GRAPH clause. queryFn is only invoked for pattern-bound forms;
// it may be nil for DATA-only callers, in which case a pattern-bound update
// fails with UnresolvedPatternError.
func Parse(ctx context.Context, updateText string, graphHint rdf.IRI, queryFn QueryFunc) (*rdf.Operation, error) {
	s := newScanner(updateText)
	s.skipWS()

	var op *rdf.Operation
	var err error
	switch {
	case s.acceptKeyword("INSERT"):
		op, err = parseInsert(s, graphHint)
	case s.acceptKeyword("DELETE"):
		op, err = parseDelete(ctx, s, graphHint, queryFn)
	default:
		return nil, &ParseError{Pos: s.pos, Msg: "expected INSERT or DELETE"}
	}
	if err != nil {
		return nil, err
	}

	s.skipWS()
	if !s.eof() {
		return nil, &ParseError{Pos: s.pos, Msg: "unexpected trailing input"}
	}

	op.RawText = updateText
	if op.Empty() {
		return nil, &EmptyOperationError{RawText: updateText}
	}
	return op, nil
}

// parseInsert handles INSERT DATA { ... }.
func parseInsert(s *scanner, graphHint rdf.IRI) (*rdf.Operation, error) {
	if !s.acceptKeyword("DATA") {
		return nil, &ParseError{Pos: s.pos, Msg: "expected DATA after INSERT (INSERT ... WHERE is not supported)"}
	}
	quads, err := parseDataBlock(s, graphHint)
	if err != nil {
		return nil, err
	}
	return &rdf.Operation{Kind: rdf.OpInsert, InsertSet: quads}, nil
}

// parseDelete handles DELETE DATA, DELETE WHERE, DELETE...WHERE and
// DELETE...INSERT...WHERE.
func parseDelete(ctx context.Context, s *scanner, graphHint rdf.IRI, queryFn QueryFunc) (*rdf.Operation, error) {
	if s.acceptKeyword("DATA") {
		quads, err := parseDataBlock(s, graphHint)
		if err != nil {
			return nil, err
		}
		return &rdf.Operation{Kind: rdf.OpDelete, DeleteSet: quads}, nil
	}

	// DELETE WHERE { ... } shorthand: the pattern block is both template
	// and condition.
	if s.acceptKeyword("WHERE") {
		raw, pos, err := s.rawBlock()
		if err != nil {
			return nil, err
		}
		patterns, err := parsePatternBlock(raw, pos, graphHint, true)
		if err != nil {
			return nil, err
		}
		cond := serializeCondition(patterns)
		deleteSet, _, err := resolveSets(ctx, patterns, nil, cond, queryFn)
		if err != nil {
			return nil, err
		}
		return &rdf.Operation{Kind: rdf.OpDelete, DeleteSet: deleteSet}, nil
	}

	raw, pos, err := s.rawBlock()
	if err != nil {
		return nil, err
	}
	delPatterns, err := parsePatternBlock(raw, pos, graphHint, true)
	if err != nil {
		return nil, err
	}

	kind := rdf.OpDelete
	var insPatterns []pattern
	if s.acceptKeyword("INSERT") {
		kind = rdf.OpDeleteInsert
		raw, pos, err := s.rawBlock()
		if err != nil {
			return nil, err
		}
		insPatterns, err = parsePatternBlock(raw, pos, graphHint, true)
		if err != nil {
			return nil, err
		}
	}

	if !s.acceptKeyword("WHERE") {
		return nil, &ParseError{Pos: s.pos, Msg: "expected WHERE clause"}
	}
	cond, _, err := s.rawBlock()
	if err != nil {
		return nil, err
	}
	if !containsGraphKeyword(cond) {
		if graphHint == "" {
			return nil, &ParseError{Pos: s.pos, Msg: "condition has no GRAPH clause and no graph hint was supplied"}
		}
		cond = "GRAPH " + graphHint.String() + " {\n" + cond + "\n}"
	}

	deleteSet, insertSet, err := resolveSets(ctx, delPatterns, insPatterns, cond, queryFn)
	if err != nil {
		return nil, err
	}
	return &rdf.Operation{Kind: kind, DeleteSet: deleteSet, InsertSet: insertSet}, nil
}

// parseDataBlock parses the quad block of a DATA form, where variables are
// forbidden and every quad must validate.
func parseDataBlock(s *scanner, graphHint rdf.IRI) ([]rdf.Quad, error) {
	raw, pos, err := s.rawBlock()
	if err != nil {
		return nil, err
	}
	patterns, err := parsePatternBlock(raw, pos, graphHint, false)
	if err != nil {
		return nil, err
	}
	quads := make([]rdf.Quad, 0, len(patterns))
	for _, pt := range patterns {
		q, err := pt.quad()
		if err != nil {
			return nil, &ParseError{Pos: pos, Msg: err.Error()}
		}
		if err := q.Validate(); err != nil {
			return nil, &ParseError{Pos: pos, Msg: err.Error()}
		}
		quads = append(quads, q)
	}
	return rdf.DedupeQuads(quads), nil
}

// resolveSets turns delete/insert pattern templates plus a condition into
// concrete quad sets via the query-before-delete strategy.
//
// Variable-free templates follow SPARQL semantics: they are instantiated once
// if the condition has at least one solution, and not at all otherwise.
func resolveSets(ctx context.Context, delPatterns, insPatterns []pattern, cond string, queryFn QueryFunc) (deleteSet, insertSet []rdf.Quad, err error) {
	delConcrete, delOpen, err := splitConcrete(delPatterns)
	if err != nil {
		return nil, nil, &ParseError{Msg: err.Error()}
	}
	insConcrete, insOpen, err := splitConcrete(insPatterns)
	if err != nil {
		return nil, nil, &ParseError{Msg: err.Error()}
	}

	vars := unionVars(append(append([]pattern{}, delOpen...), insOpen...))
	query := buildResolveQuery(vars, cond)

	if queryFn == nil {
		return nil, nil, &UnresolvedPatternError{Query: query, Err: fmt.Errorf("no query callback configured")}
	}
	rows, err := queryFn(ctx, query)
	if err != nil {
		return nil, nil, &UnresolvedPatternError{Query: query, Err: err}
	}

	if len(rows) == 0 {
		return nil, nil, nil
	}

	deleteSet = append(deleteSet, delConcrete...)
	insertSet = append(insertSet, insConcrete...)
	for _, row := range rows {
		for _, pt := range delOpen {
			q, err := pt.bind(row)
			if err != nil {
				return nil, nil, &UnresolvedPatternError{Query: query, Err: err}
			}
			deleteSet = append(deleteSet, q)
		}
		for _, pt := range insOpen {
			q, err := pt.bind(row)
			if err != nil {
				return nil, nil, &UnresolvedPatternError{Query: query, Err: err}
			}
			insertSet = append(insertSet, q)
		}
	}
	return rdf.DedupeQuads(deleteSet), rdf.DedupeQuads(insertSet), nil
}

// buildResolveQuery produces the SELECT that materializes pattern variables.
// With no variables it degenerates to an existence probe.
func buildResolveQuery(vars []string, cond string) string {
	if len(vars) == 0 {
		return "SELECT * WHERE {\n" + cond + "\n} LIMIT 1"
	}
	var b strings.Builder
	b.WriteString("SELECT DISTINCT")
	for _, v := range vars {
		b.WriteString(" ?")
		b.WriteString(v)
	}
	b.WriteString(" WHERE {\n")
	b.WriteString(cond)
	b.WriteString("\n}")
	return b.String()
}

// serializeCondition renders patterns back into condition text for the
// DELETE WHERE shorthand, scoping each group of patterns with its graph.
func serializeCondition(patterns []pattern) string {
	byGraph := make(map[rdf.IRI][]pattern)
	var order []rdf.IRI
	for _, pt := range patterns {
		if _, ok := byGraph[pt.graph]; !ok {
			order = append(order, pt.graph)
		}
		byGraph[pt.graph] = append(byGraph[pt.graph], pt)
	}
	var b strings.Builder
	for _, g := range order {
		b.WriteString("GRAPH ")
		b.WriteString(g.String())
		b.WriteString(" {\n")
		for _, pt := range byGraph[g] {
			b.WriteString("    ")
			b.WriteString(pt.text())
			b.WriteString("\n")
		}
		b.WriteString("}\n")
	}
	return b.String()
}
