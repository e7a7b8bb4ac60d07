package sparql

import (
	"strings"

	"github.com/vital-ai/vital-graph/internal/rdf"
)

// scanner is a position-tracking cursor over update text. The grammar is
// small enough that a handful of scanning helpers beats a token stream,
// and keeping byte offsets lets WHERE conditions pass through verbatim.
type scanner struct {
	src string
	pos int
}

func newScanner(src string) *scanner {
	return &scanner{src: src}
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

// skipWS advances over whitespace and '#' line comments.
func (s *scanner) skipWS() {
	for !s.eof() {
		c := s.src[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			s.pos++
		case c == '#':
			for !s.eof() && s.src[s.pos] != '\n' {
				s.pos++
			}
		default:
			return
		}
	}
}

// acceptKeyword consumes a case-insensitive keyword if present at the cursor
// followed by a non-name byte.
func (s *scanner) acceptKeyword(kw string) bool {
	s.skipWS()
	end := s.pos + len(kw)
	if end > len(s.src) {
		return false
	}
	if !strings.EqualFold(s.src[s.pos:end], kw) {
		return false
	}
	if end < len(s.src) && isNameByte(s.src[end]) {
		return false
	}
	s.pos = end
	return true
}

// rawBlock consumes a '{ ... }' block with balanced braces, respecting quoted
// strings, and returns the inner text plus its byte offset.
func (s *scanner) rawBlock() (string, int, error) {
	s.skipWS()
	if s.eof() || s.src[s.pos] != '{' {
		return "", s.pos, &ParseError{Pos: s.pos, Msg: "expected '{'"}
	}
	s.pos++
	start := s.pos
	depth := 1
	for !s.eof() {
		switch s.src[s.pos] {
		case '"':
			if err := s.skipString(); err != nil {
				return "", start, err
			}
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				inner := s.src[start:s.pos]
				s.pos++
				return inner, start, nil
			}
		}
		s.pos++
	}
	return "", start, &ParseError{Pos: start, Msg: "unterminated block"}
}

// skipString advances past a quoted string starting at the cursor.
func (s *scanner) skipString() error {
	start := s.pos
	s.pos++ // opening quote
	for !s.eof() {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
		case '"':
			s.pos++
			return nil
		default:
			s.pos++
		}
	}
	return &ParseError{Pos: start, Msg: "unterminated string literal"}
}

// iriRef consumes '<...>' and returns the IRI.
func (s *scanner) iriRef() (rdf.IRI, error) {
	s.skipWS()
	if s.eof() || s.src[s.pos] != '<' {
		return "", &ParseError{Pos: s.pos, Msg: "expected IRI"}
	}
	end := strings.IndexByte(s.src[s.pos:], '>')
	if end < 0 {
		return "", &ParseError{Pos: s.pos, Msg: "unterminated IRI"}
	}
	iri := rdf.IRI(s.src[s.pos+1 : s.pos+end])
	s.pos += end + 1
	if err := rdf.ValidateIRI(iri); err != nil {
		return "", &ParseError{Pos: s.pos, Msg: err.Error()}
	}
	return iri, nil
}

// term consumes one pattern term: an IRI, a variable, or a literal.
// Bare integers, decimals and booleans are accepted as typed-literal
// shorthand, matching how update text is written in practice.
func (s *scanner) term(allowVars bool) (patTerm, error) {
	s.skipWS()
	if s.eof() {
		return patTerm{}, &ParseError{Pos: s.pos, Msg: "expected term"}
	}
	switch c := s.src[s.pos]; {
	case c == '<':
		iri, err := s.iriRef()
		if err != nil {
			return patTerm{}, err
		}
		return patTerm{term: iri}, nil

	case c == '?':
		if !allowVars {
			return patTerm{}, &ParseError{Pos: s.pos, Msg: "variables are not allowed in DATA blocks"}
		}
		s.pos++
		start := s.pos
		for !s.eof() && isNameByte(s.src[s.pos]) {
			s.pos++
		}
		if s.pos == start {
			return patTerm{}, &ParseError{Pos: start, Msg: "empty variable name"}
		}
		return patTerm{varName: s.src[start:s.pos]}, nil

	case c == '"':
		return s.literal()

	case c == '+' || c == '-' || (c >= '0' && c <= '9'):
		return s.numericLiteral()

	default:
		if s.acceptKeyword("true") {
			return patTerm{term: rdf.NewTypedLiteral("true", rdf.XSDBoolean)}, nil
		}
		if s.acceptKeyword("false") {
			return patTerm{term: rdf.NewTypedLiteral("false", rdf.XSDBoolean)}, nil
		}
		return patTerm{}, &ParseError{Pos: s.pos, Msg: "expected IRI, literal or variable"}
	}
}

// literal consumes a quoted literal with an optional '^^<iri>' datatype or
// '@lang' suffix.
func (s *scanner) literal() (patTerm, error) {
	start := s.pos
	if err := s.skipString(); err != nil {
		return patTerm{}, err
	}
	value := rdf.UnescapeLiteralValue(s.src[start+1 : s.pos-1])

	if strings.HasPrefix(s.src[s.pos:], "^^") {
		s.pos += 2
		dt, err := s.iriRef()
		if err != nil {
			return patTerm{}, err
		}
		return patTerm{term: rdf.NewTypedLiteral(value, dt)}, nil
	}
	if !s.eof() && s.src[s.pos] == '@' {
		s.pos++
		langStart := s.pos
		for !s.eof() && (isNameByte(s.src[s.pos]) || s.src[s.pos] == '-') {
			s.pos++
		}
		if s.pos == langStart {
			return patTerm{}, &ParseError{Pos: langStart, Msg: "empty language tag"}
		}
		return patTerm{term: rdf.NewLangLiteral(value, s.src[langStart:s.pos])}, nil
	}
	return patTerm{term: rdf.NewLiteral(value)}, nil
}

// numericLiteral consumes a bare number as an xsd:integer or xsd:decimal.
func (s *scanner) numericLiteral() (patTerm, error) {
	start := s.pos
	if s.src[s.pos] == '+' || s.src[s.pos] == '-' {
		s.pos++
	}
	digits := 0
	decimal := false
	for !s.eof() {
		c := s.src[s.pos]
		if c >= '0' && c <= '9' {
			digits++
			s.pos++
			continue
		}
		if c == '.' && !decimal && s.pos+1 < len(s.src) && s.src[s.pos+1] >= '0' && s.src[s.pos+1] <= '9' {
			decimal = true
			s.pos++
			continue
		}
		break
	}
	if digits == 0 {
		return patTerm{}, &ParseError{Pos: start, Msg: "malformed numeric literal"}
	}
	dt := rdf.XSDInteger
	if decimal {
		dt = rdf.XSDDecimal
	}
	return patTerm{term: rdf.NewTypedLiteral(s.src[start:s.pos], dt)}, nil
}

// parsePatternBlock parses the triples of a quad block, honoring nested
// GRAPH <g> { ... } clauses and applying graphHint to unscoped triples.
func parsePatternBlock(raw string, offset int, graphHint rdf.IRI, allowVars bool) ([]pattern, error) {
	s := newScanner(raw)
	var out []pattern
	for {
		s.skipWS()
		if s.eof() {
			return out, nil
		}
		if s.acceptKeyword("GRAPH") {
			g, err := s.iriRef()
			if err != nil {
				return nil, err
			}
			inner, _, err := s.rawBlock()
			if err != nil {
				return nil, err
			}
			pts, err := parseTriples(inner, g, allowVars)
			if err != nil {
				return nil, err
			}
			out = append(out, pts...)
			continue
		}
		if graphHint == "" {
			return nil, &ParseError{Pos: offset + s.pos, Msg: "triple has no GRAPH clause and no graph hint was supplied"}
		}
		pt, err := parseOneTriple(s, graphHint, allowVars)
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
}

// parseTriples parses a flat run of triples, all scoped to graph g.
func parseTriples(raw string, g rdf.IRI, allowVars bool) ([]pattern, error) {
	s := newScanner(raw)
	var out []pattern
	for {
		s.skipWS()
		if s.eof() {
			return out, nil
		}
		pt, err := parseOneTriple(s, g, allowVars)
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
}

// parseOneTriple parses "term term term ." with the trailing dot optional
// before end of input.
func parseOneTriple(s *scanner, g rdf.IRI, allowVars bool) (pattern, error) {
	sub, err := s.term(allowVars)
	if err != nil {
		return pattern{}, err
	}
	pred, err := s.term(allowVars)
	if err != nil {
		return pattern{}, err
	}
	obj, err := s.term(allowVars)
	if err != nil {
		return pattern{}, err
	}
	s.skipWS()
	if !s.eof() {
		if s.src[s.pos] != '.' {
			return pattern{}, &ParseError{Pos: s.pos, Msg: "expected '.' after triple"}
		}
		s.pos++
	}
	return pattern{s: sub, p: pred, o: obj, graph: g}, nil
}
