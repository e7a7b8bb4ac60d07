package materialize

import (
	"sort"

	"github.com/vital-ai/vital-graph/internal/rdf"
	"github.com/vital-ai/vital-graph/internal/vocab"
)

// Edge is one recognized edge instance within an insert or delete set.
type Edge struct {
	URI         rdf.IRI // the edge node itself
	Kind        EdgeKind
	Source      rdf.Term
	Destination rdf.Term
	Graph       rdf.IRI
}

// Shortcut returns the materialized triple the edge implies.
func (e Edge) Shortcut() rdf.Quad {
	return rdf.Quad{
		Subject:   e.Source,
		Predicate: e.Kind.Shortcut,
		Object:    e.Destination,
		Graph:     e.Graph,
	}
}

// DeletedNode is a node whose identity-defining properties were removed in a
// delete set, along with the graph they were removed from.
type DeletedNode struct {
	URI   rdf.IRI
	Graph rdf.IRI
}

// DetectEdges scans a quad set once and returns every complete edge instance
// of a tracked kind. A subject counts as an edge only when the set carries
// its type marker, its source pointer, and its destination pointer together;
// partial edge fragments are ignored. Unrelated quads cost one map lookup
// each.
func (r *Registry) DetectEdges(quads []rdf.Quad) []Edge {
	var edges []Edge
	for subject, group := range rdf.GroupBySubject(quads) {
		var kind EdgeKind
		var tracked bool
		var graph rdf.IRI
		for _, q := range group {
			if !q.Predicate.Equal(vocab.TypeMarker) {
				continue
			}
			obj, ok := q.Object.(rdf.IRI)
			if !ok {
				continue
			}
			if k, ok := r.KindForType(obj); ok {
				kind = k
				tracked = true
				graph = q.Graph
				break
			}
		}
		if !tracked {
			continue
		}

		var source, destination rdf.Term
		for _, q := range group {
			switch {
			case q.Predicate.Equal(kind.Source):
				source = q.Object
			case q.Predicate.Equal(kind.Destination):
				destination = q.Object
			}
		}
		if source == nil || destination == nil {
			continue
		}
		edges = append(edges, Edge{
			URI:         subject,
			Kind:        kind,
			Source:      source,
			Destination: destination,
			Graph:       graph,
		})
	}
	// Deterministic order: map iteration above is not.
	sort.Slice(edges, func(i, j int) bool { return edges[i].URI < edges[j].URI })
	return edges
}

// DetectDeletedNodes returns the nodes a delete set fully removes. Deletion
// is inferred only when the set removes both the node's type marker and its
// identity marker; losing some other property is just an update and must not
// trigger shortcut cleanup.
func DetectDeletedNodes(deleteSet []rdf.Quad) []DeletedNode {
	var out []DeletedNode
	for subject, group := range rdf.GroupBySubject(deleteSet) {
		var hasType, hasIdentity bool
		var graph rdf.IRI
		for _, q := range group {
			switch {
			case q.Predicate.Equal(vocab.TypeMarker):
				hasType = true
				graph = q.Graph
			case q.Predicate.Equal(vocab.IdentityMarker):
				hasIdentity = true
			}
		}
		if hasType && hasIdentity {
			out = append(out, DeletedNode{URI: subject, Graph: graph})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}
