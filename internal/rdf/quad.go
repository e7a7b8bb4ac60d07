package rdf

import (
	"fmt"
	"strings"
)

// Quad is a (subject, predicate, object, graph) tuple.
//
// The graph component is always a concrete IRI supplied by the caller; the
// core never infers or defaults it. Quads are immutable values: diffing,
// storage, and transfer all operate on copies, never shared references.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     IRI
}

// NewQuad builds a quad. It exists mainly to keep call sites compact; no
// validation happens here (see Validate).
func NewQuad(s, p, o Term, g IRI) Quad {
	return Quad{Subject: s, Predicate: p, Object: o, Graph: g}
}

// Equal reports structural equality of all four components.
func (q Quad) Equal(other Quad) bool {
	return q.Graph == other.Graph &&
		q.Subject.Equal(other.Subject) &&
		q.Predicate.Equal(other.Predicate) &&
		q.Object.Equal(other.Object)
}

// Triple renders the subject, predicate and object in N-Triples syntax,
// terminated with " .", the form embedded inside GRAPH blocks of update text.
func (q Quad) Triple() string {
	return q.Subject.String() + " " + q.Predicate.String() + " " + q.Object.String() + " ."
}

// String renders the quad including its graph, for logs and errors.
func (q Quad) String() string {
	return q.Subject.String() + " " + q.Predicate.String() + " " + q.Object.String() + " " + q.Graph.String()
}

// Validate checks that the quad is storable: all four positions present,
// subject and predicate are IRIs, and every IRI is well formed.
func (q Quad) Validate() error {
	if q.Subject == nil || q.Predicate == nil || q.Object == nil {
		return fmt.Errorf("quad has nil term")
	}
	s, ok := q.Subject.(IRI)
	if !ok {
		return fmt.Errorf("quad subject must be an IRI, got %s", q.Subject)
	}
	if err := ValidateIRI(s); err != nil {
		return fmt.Errorf("invalid subject: %w", err)
	}
	p, ok := q.Predicate.(IRI)
	if !ok {
		return fmt.Errorf("quad predicate must be an IRI, got %s", q.Predicate)
	}
	if err := ValidateIRI(p); err != nil {
		return fmt.Errorf("invalid predicate: %w", err)
	}
	if o, ok := q.Object.(IRI); ok {
		if err := ValidateIRI(o); err != nil {
			return fmt.Errorf("invalid object: %w", err)
		}
	}
	if err := ValidateIRI(q.Graph); err != nil {
		return fmt.Errorf("invalid graph: %w", err)
	}
	return nil
}

// ContainsQuad reports whether qs contains a quad structurally equal to q.
func ContainsQuad(qs []Quad, q Quad) bool {
	for _, c := range qs {
		if c.Equal(q) {
			return true
		}
	}
	return false
}

// DedupeQuads returns qs with structural duplicates removed, preserving the
// order of first occurrence. The input slice is not modified.
func DedupeQuads(qs []Quad) []Quad {
	if len(qs) < 2 {
		return qs
	}
	seen := make(map[string]struct{}, len(qs))
	out := make([]Quad, 0, len(qs))
	for _, q := range qs {
		key := q.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}
	return out
}

// GroupBySubject partitions quads by their subject IRI. Quads whose subject
// is not an IRI are skipped. Used by edge detection, which reasons about a
// node's whole property set at once.
func GroupBySubject(qs []Quad) map[IRI][]Quad {
	groups := make(map[IRI][]Quad)
	for _, q := range qs {
		s, ok := q.Subject.(IRI)
		if !ok {
			continue
		}
		groups[s] = append(groups[s], q)
	}
	return groups
}

// FormatTriples renders quads as an indented N-Triples block, one triple per
// line, for embedding inside GRAPH { ... } sections of update text.
func FormatTriples(qs []Quad) string {
	var b strings.Builder
	for _, q := range qs {
		b.WriteString("    ")
		b.WriteString(q.Triple())
		b.WriteString("\n")
	}
	return b.String()
}
