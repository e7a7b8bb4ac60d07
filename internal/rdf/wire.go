package rdf

import (
	"encoding/json"
	"fmt"
)

// TermRecord is the JSON wire shape for a term, matching the SPARQL JSON
// results convention: a type discriminator plus value, with datatype and
// language tag for literals.
type TermRecord struct {
	Type     string `json:"type"` // "uri" or "literal"
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// QuadRecord is the JSON wire shape for a quad, used by the JSONL
// import/export path and the monitor event stream.
type QuadRecord struct {
	Subject   TermRecord `json:"subject"`
	Predicate TermRecord `json:"predicate"`
	Object    TermRecord `json:"object"`
	Graph     string     `json:"graph"`
}

// ToRecord converts a term to its wire shape.
func ToRecord(t Term) TermRecord {
	switch v := t.(type) {
	case IRI:
		return TermRecord{Type: "uri", Value: string(v)}
	case Literal:
		return TermRecord{
			Type:     "literal",
			Value:    v.Value,
			Datatype: string(v.Datatype),
			Lang:     v.Lang,
		}
	default:
		return TermRecord{}
	}
}

// ToTerm converts a wire record back to a term.
func (r TermRecord) ToTerm() (Term, error) {
	switch r.Type {
	case "uri":
		return IRI(r.Value), nil
	case "literal", "typed-literal":
		return Literal{Value: r.Value, Datatype: IRI(r.Datatype), Lang: r.Lang}, nil
	default:
		return nil, fmt.Errorf("unknown term type %q", r.Type)
	}
}

// QuadToRecord converts a quad to its wire shape.
func QuadToRecord(q Quad) QuadRecord {
	return QuadRecord{
		Subject:   ToRecord(q.Subject),
		Predicate: ToRecord(q.Predicate),
		Object:    ToRecord(q.Object),
		Graph:     string(q.Graph),
	}
}

// ToQuad converts a wire record back to a quad and validates it.
func (r QuadRecord) ToQuad() (Quad, error) {
	s, err := r.Subject.ToTerm()
	if err != nil {
		return Quad{}, fmt.Errorf("bad subject: %w", err)
	}
	p, err := r.Predicate.ToTerm()
	if err != nil {
		return Quad{}, fmt.Errorf("bad predicate: %w", err)
	}
	o, err := r.Object.ToTerm()
	if err != nil {
		return Quad{}, fmt.Errorf("bad object: %w", err)
	}
	q := Quad{Subject: s, Predicate: p, Object: o, Graph: IRI(r.Graph)}
	if err := q.Validate(); err != nil {
		return Quad{}, err
	}
	return q, nil
}

// MarshalQuad renders a quad as a single JSON line (no trailing newline).
func MarshalQuad(q Quad) ([]byte, error) {
	return json.Marshal(QuadToRecord(q))
}

// UnmarshalQuad parses one JSON line into a quad.
func UnmarshalQuad(data []byte) (Quad, error) {
	var rec QuadRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Quad{}, fmt.Errorf("failed to decode quad record: %w", err)
	}
	return rec.ToQuad()
}
