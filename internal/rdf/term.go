// Package rdf provides the core term and quad model for the hybrid graph store.
//
// Terms are immutable values compared by structural equality. A term is either
// an IRI (an absolute URI) or a Literal (a value with an optional datatype IRI
// or language tag). Quads are (subject, predicate, object, graph) tuples and
// are the unit of storage, transfer, and diffing across the whole system.
//
// The String methods render terms and quads in N-Triples syntax, which is the
// form embedded into SPARQL update and query text.
package rdf

import (
	"fmt"
	"strings"
)

// Term is an RDF term: either an IRI or a Literal.
//
// Terms are value types. Two terms are equal iff they have the same kind and
// all components match exactly (no datatype coercion, no language folding).
type Term interface {
	// Equal reports structural equality with another term.
	Equal(other Term) bool

	// String renders the term in N-Triples syntax.
	String() string

	isTerm()
}

// IRI is an absolute URI identifying a resource, predicate, or graph.
type IRI string

func (i IRI) isTerm() {}

// Equal implements Term.Equal.
func (i IRI) Equal(other Term) bool {
	o, ok := other.(IRI)
	return ok && o == i
}

// String renders the IRI in N-Triples syntax: <http://example.org/x>.
func (i IRI) String() string {
	return "<" + string(i) + ">"
}

// Literal is a typed or language-tagged literal value.
//
// At most one of Datatype and Lang is set. A literal with neither is a plain
// string literal.
type Literal struct {
	Value    string
	Datatype IRI    // datatype IRI, empty for plain or language-tagged literals
	Lang     string // language tag, empty for plain or typed literals
}

// NewLiteral returns a plain string literal.
func NewLiteral(value string) Literal {
	return Literal{Value: value}
}

// NewTypedLiteral returns a literal with a datatype IRI.
func NewTypedLiteral(value string, datatype IRI) Literal {
	return Literal{Value: value, Datatype: datatype}
}

// NewLangLiteral returns a language-tagged literal.
func NewLangLiteral(value, lang string) Literal {
	return Literal{Value: value, Lang: lang}
}

func (l Literal) isTerm() {}

// Equal implements Term.Equal.
func (l Literal) Equal(other Term) bool {
	o, ok := other.(Literal)
	return ok && o == l
}

// String renders the literal in N-Triples syntax, escaping the value.
func (l Literal) String() string {
	s := `"` + escapeLiteral(l.Value) + `"`
	switch {
	case l.Datatype != "":
		return s + "^^" + l.Datatype.String()
	case l.Lang != "":
		return s + "@" + l.Lang
	default:
		return s
	}
}

// Common XSD datatype IRIs used when binding query solutions and parsing
// shorthand numeric and boolean tokens in update text.
const (
	XSDString  IRI = "http://www.w3.org/2001/XMLSchema#string"
	XSDInteger IRI = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDecimal IRI = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDBoolean IRI = "http://www.w3.org/2001/XMLSchema#boolean"
)

// escapeLiteral escapes a literal value per N-Triples string escaping rules.
func escapeLiteral(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unescapeLiteral reverses escapeLiteral. Unknown escapes are preserved
// verbatim rather than rejected; the parser validates syntax separately.
func unescapeLiteral(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// UnescapeLiteralValue reverses N-Triples string escaping. Exposed for the
// update parser, which lexes quoted literal bodies in escaped form.
func UnescapeLiteralValue(s string) string {
	return unescapeLiteral(s)
}

// ValidateIRI performs the minimal well-formedness check the core relies on:
// the IRI must be non-empty and must not contain angle brackets or whitespace,
// since it is embedded verbatim into query and update text.
func ValidateIRI(i IRI) error {
	if i == "" {
		return fmt.Errorf("empty IRI")
	}
	if strings.ContainsAny(string(i), "<> \t\n\r\"") {
		return fmt.Errorf("IRI contains forbidden characters: %q", string(i))
	}
	return nil
}
