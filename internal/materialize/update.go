package materialize

import (
	"fmt"
	"strings"

	"github.com/vital-ai/vital-graph/internal/rdf"
)

// BuildUpdate renders all derived-triple changes for one operation as a
// single update text: a DELETE DATA block for retracted shortcuts, an
// INSERT DATA block for new ones, then one pattern-bound cleanup for each
// fully deleted node. One text means one graph-store round trip no matter
// how many edges the operation touched, which bounds the window during which
// the two stores can diverge.
func (r *Registry) BuildUpdate(insertedEdges, deletedEdges []Edge, deletedNodes []DeletedNode) string {
	var parts []string

	if block := dataBlock("DELETE DATA", shortcuts(deletedEdges)); block != "" {
		parts = append(parts, block)
	}
	if block := dataBlock("INSERT DATA", shortcuts(insertedEdges)); block != "" {
		parts = append(parts, block)
	}
	if block := r.cleanupBlock(deletedNodes); block != "" {
		parts = append(parts, block)
	}
	return strings.Join(parts, " ;\n")
}

func shortcuts(edges []Edge) []rdf.Quad {
	out := make([]rdf.Quad, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Shortcut())
	}
	return rdf.DedupeQuads(out)
}

// dataBlock renders "VERB { GRAPH <g> { triples } ... }" grouping quads by
// graph, or "" when there is nothing to say.
func dataBlock(verb string, quads []rdf.Quad) string {
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

// cleanupBlock removes every shortcut triple that points AT a deleted node.
// Shortcuts FROM a deleted node need no handling here: the node's whole
// triple set, its outgoing shortcuts included, is already being removed by
// the same operation.
//
// One DELETE covers all nodes and all tracked shortcut predicates, with a
// UNION branch per (node, predicate) pair. Each branch binds its own subject
// variable; template triples whose variable stays unbound are simply not
// deleted, which is exactly the semantics wanted.
func (r *Registry) cleanupBlock(deletedNodes []DeletedNode) string {
	preds := r.ShortcutPredicates()
	if len(deletedNodes) == 0 || len(preds) == 0 {
		return ""
	}

	var template strings.Builder
	var condition strings.Builder
	branch := 0
	for _, node := range deletedNodes {
		for _, pred := range preds {
			v := fmt.Sprintf("?s%d", branch)
			branch++
			triple := fmt.Sprintf("GRAPH %s { %s %s %s . }", node.Graph.String(), v, pred.String(), node.URI.String())
			template.WriteString("  ")
			template.WriteString(triple)
			template.WriteString("\n")
			if condition.Len() > 0 {
				condition.WriteString("  UNION\n")
			}
			condition.WriteString("  { ")
			condition.WriteString(triple)
			condition.WriteString(" }\n")
		}
	}

	return "DELETE {\n" + template.String() + "}\nWHERE {\n" + condition.String() + "}"
}
