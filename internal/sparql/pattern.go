package sparql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vital-ai/vital-graph/internal/rdf"
)

// patTerm is one position of a triple pattern: either a concrete term or a
// variable name (without the leading '?').
type patTerm struct {
	term    rdf.Term
	varName string
}

func (t patTerm) isVar() bool { return t.varName != "" }

// text renders the pattern term in SPARQL syntax.
func (t patTerm) text() string {
	if t.isVar() {
		return "?" + t.varName
	}
	return t.term.String()
}

// pattern is a quad pattern: three positions plus the graph it targets.
// The graph is always concrete: either from an explicit GRAPH clause or
// from the caller's graph hint.
type pattern struct {
	s, p, o patTerm
	graph   rdf.IRI
}

// vars returns the variable names used by the pattern.
func (pt pattern) vars() []string {
	var out []string
	for _, t := range []patTerm{pt.s, pt.p, pt.o} {
		if t.isVar() {
			out = append(out, t.varName)
		}
	}
	return out
}

// concrete reports whether the pattern has no variables.
func (pt pattern) concrete() bool {
	return !pt.s.isVar() && !pt.p.isVar() && !pt.o.isVar()
}

// quad converts a concrete pattern into a quad. It fails on a pattern that
// still has a variable.
func (pt pattern) quad() (rdf.Quad, error) {
	if !pt.concrete() {
		return rdf.Quad{}, fmt.Errorf("pattern still has variables: %s", pt.text())
	}
	return rdf.Quad{Subject: pt.s.term, Predicate: pt.p.term, Object: pt.o.term, Graph: pt.graph}, nil
}

// bind substitutes a solution row into the pattern, yielding a concrete quad.
// A variable missing from the row is an error: the read query should have
// projected every pattern variable.
func (pt pattern) bind(row map[string]rdf.Term) (rdf.Quad, error) {
	resolve := func(t patTerm) (rdf.Term, error) {
		if !t.isVar() {
			return t.term, nil
		}
		v, ok := row[t.varName]
		if !ok || v == nil {
			return nil, fmt.Errorf("solution row has no binding for ?%s", t.varName)
		}
		return v, nil
	}
	s, err := resolve(pt.s)
	if err != nil {
		return rdf.Quad{}, err
	}
	p, err := resolve(pt.p)
	if err != nil {
		return rdf.Quad{}, err
	}
	o, err := resolve(pt.o)
	if err != nil {
		return rdf.Quad{}, err
	}
	return rdf.Quad{Subject: s, Predicate: p, Object: o, Graph: pt.graph}, nil
}

// text renders the pattern as a SPARQL triple pattern.
func (pt pattern) text() string {
	return pt.s.text() + " " + pt.p.text() + " " + pt.o.text() + " ."
}

// unionVars collects the sorted union of all variables across patterns.
// These become the projection of the resolving read query.
func unionVars(patterns []pattern) []string {
	set := make(map[string]struct{})
	for _, pt := range patterns {
		for _, v := range pt.vars() {
			set[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// concreteQuads splits patterns into the quads produced by variable-free
// patterns and the remainder still needing solution binding.
func splitConcrete(patterns []pattern) (quads []rdf.Quad, open []pattern, err error) {
	for _, pt := range patterns {
		if pt.concrete() {
			q, qerr := pt.quad()
			if qerr != nil {
				return nil, nil, qerr
			}
			quads = append(quads, q)
			continue
		}
		open = append(open, pt)
	}
	return quads, open, nil
}

// containsGraphKeyword reports whether raw pattern text already scopes itself
// with a GRAPH clause, so the parser knows not to wrap it again. IRIs and
// string literals are skipped: GRAPH inside '<...>' or quotes is data, not a
// keyword.
func containsGraphKeyword(raw string) bool {
	for i := 0; i < len(raw); {
		switch raw[i] {
		case '<':
			j := strings.IndexByte(raw[i:], '>')
			if j < 0 {
				return false
			}
			i += j + 1
		case '"', '\'':
			i = skipQuoted(raw, i)
		default:
			if keywordAt(raw, i, "GRAPH") {
				return true
			}
			i++
		}
	}
	return false
}

// skipQuoted returns the index just past a quoted string starting at start.
// An unterminated string consumes the rest of the text.
func skipQuoted(raw string, start int) int {
	quote := raw[start]
	for i := start + 1; i < len(raw); i++ {
		switch raw[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}
	return len(raw)
}

// keywordAt reports whether kw appears at offset i as a standalone word.
func keywordAt(raw string, i int, kw string) bool {
	end := i + len(kw)
	if end > len(raw) || !strings.EqualFold(raw[i:end], kw) {
		return false
	}
	before := i == 0 || !isNameByte(raw[i-1])
	after := end >= len(raw) || !isNameByte(raw[end])
	return before && after
}

func isNameByte(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
