package graphdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vital-ai/vital-graph/internal/rdf"
	"github.com/vital-ai/vital-graph/internal/sparql"
)

// Results holds decoded SPARQL JSON results: the projected variables and one
// binding row per solution.
type Results struct {
	Vars []string
	Rows []sparql.Binding
}

// resultsDoc mirrors the application/sparql-results+json layout.
type resultsDoc struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]rdf.TermRecord `json:"bindings"`
	} `json:"results"`
}

// decodeResults parses a SPARQL JSON results body.
func decodeResults(r io.Reader) (*Results, error) {
	var doc resultsDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("malformed results document: %w", err)
	}

	out := &Results{Vars: doc.Head.Vars}
	for _, binding := range doc.Results.Bindings {
		row := make(sparql.Binding, len(binding))
		for name, rec := range binding {
			term, err := decodeTerm(rec)
			if err != nil {
				return nil, fmt.Errorf("binding %s: %w", name, err)
			}
			row[name] = term
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// decodeTerm converts one results-document term. Blank nodes are carried as
// IRIs in the _: namespace so callers can still correlate them within a
// single result set.
func decodeTerm(rec rdf.TermRecord) (rdf.Term, error) {
	if rec.Type == "bnode" {
		return rdf.IRI("_:" + rec.Value), nil
	}
	return rec.ToTerm()
}

// QueryBindings runs Query and returns only the solution rows.
func (c *Client) QueryBindings(ctx context.Context, dataset, queryText string) ([]sparql.Binding, error) {
	res, err := c.Query(ctx, dataset, queryText)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// QueryFunc adapts the client to the parser's query callback for one dataset.
func (c *Client) QueryFunc(dataset string) sparql.QueryFunc {
	return func(ctx context.Context, queryText string) ([]sparql.Binding, error) {
		return c.QueryBindings(ctx, dataset, queryText)
	}
}
