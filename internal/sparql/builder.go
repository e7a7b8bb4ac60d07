package sparql

import (
	"strconv"
	"strings"

	"github.com/vital-ai/vital-graph/internal/rdf"
)

// SelectBuilder constructs read queries over the graph store.
//
// Every read path that feeds object reconstruction must go through this
// builder and call ExcludeMaterialized with the canonical shortcut predicate
// list, so derived triples never leak out as domain properties. Keeping the
// exclusion in one place (instead of re-declared per call site) is the whole
// point of this type.
type SelectBuilder struct {
	vars     []string
	graph    rdf.IRI
	patterns []string
	filters  []string
	distinct bool
	limit    int
}

// NewSelect starts a query projecting the given variables (without '?').
// No variables projects '*'.
func NewSelect(vars ...string) *SelectBuilder {
	return &SelectBuilder{vars: vars}
}

// Distinct adds the DISTINCT modifier.
func (b *SelectBuilder) Distinct() *SelectBuilder {
	b.distinct = true
	return b
}

// InGraph scopes all patterns to the given graph.
func (b *SelectBuilder) InGraph(g rdf.IRI) *SelectBuilder {
	b.graph = g
	return b
}

// Where appends a triple pattern. Each argument is raw SPARQL term syntax
// (use rdf.Term.String for concrete terms, "?name" for variables).
func (b *SelectBuilder) Where(s, p, o string) *SelectBuilder {
	b.patterns = append(b.patterns, s+" "+p+" "+o+" .")
	return b
}

// Filter appends a raw FILTER expression (without the FILTER keyword).
func (b *SelectBuilder) Filter(expr string) *SelectBuilder {
	b.filters = append(b.filters, expr)
	return b
}

// ExcludeMaterialized appends the predicate-exclusion filter for the variable
// bound to the predicate position. The shortcut list must come from the
// materialization registry, the single canonical source.
func (b *SelectBuilder) ExcludeMaterialized(predVar string, shortcuts []rdf.IRI) *SelectBuilder {
	if len(shortcuts) == 0 {
		return b
	}
	rendered := make([]string, len(shortcuts))
	for i, p := range shortcuts {
		rendered[i] = p.String()
	}
	b.filters = append(b.filters, "?"+predVar+" NOT IN ("+strings.Join(rendered, ", ")+")")
	return b
}

// Limit caps the number of solutions (0 means no limit).
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = n
	return b
}

// Build renders the query text.
func (b *SelectBuilder) Build() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	if len(b.vars) == 0 {
		sb.WriteString("*")
	} else {
		for i, v := range b.vars {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString("?")
			sb.WriteString(v)
		}
	}
	sb.WriteString(" WHERE {\n")
	indent := "    "
	if b.graph != "" {
		sb.WriteString("  GRAPH ")
		sb.WriteString(b.graph.String())
		sb.WriteString(" {\n")
	}
	for _, p := range b.patterns {
		sb.WriteString(indent)
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	for _, f := range b.filters {
		sb.WriteString(indent)
		sb.WriteString("FILTER (")
		sb.WriteString(f)
		sb.WriteString(")\n")
	}
	if b.graph != "" {
		sb.WriteString("  }\n")
	}
	sb.WriteString("}")
	if b.limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(b.limit))
	}
	return sb.String()
}
