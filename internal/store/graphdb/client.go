// Package graphdb provides the HTTP client for the pattern-query graph store.
//
// The graph store is a SPARQL 1.1 endpoint with one dataset per logical
// space, laid out Fuseki-style:
//
//	POST /<dataset>/query    - read queries (SPARQL JSON results)
//	POST /<dataset>/update   - update text
//	POST /$/datasets         - create a dataset
//	DELETE /$/datasets/<ds>  - drop a dataset
//
// The client depends only on "execute query text" / "execute update text"
// over HTTP, never on the store's internal indexing. All calls honor context
// cancellation and a per-request timeout so no transaction slot ever blocks
// on a slow network hop.
package graphdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds each graph-store round trip unless the caller's
// context is tighter.
const DefaultTimeout = 30 * time.Second

// Client talks to one graph-store endpoint. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the endpoint at baseURL (scheme://host[:port]).
// A zero timeout selects DefaultTimeout.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid graph store URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Query executes a read query against the dataset and decodes the SPARQL
// JSON results into solution rows.
func (c *Client) Query(ctx context.Context, dataset, queryText string) (*Results, error) {
	body := url.Values{"query": {queryText}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+dataset+"/query", strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph store query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httpError("query", resp)
	}
	results, err := decodeResults(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode query results: %w", err)
	}
	return results, nil
}

// Update executes update text against the dataset.
func (c *Client) Update(ctx context.Context, dataset, updateText string) error {
	body := url.Values{"update": {updateText}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+dataset+"/update", strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph store update failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpError("update", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// CreateDataset creates the dataset for a space. Creating a dataset that
// already exists is a no-op (the admin endpoint answers 409, which is
// swallowed to keep initialization idempotent).
func (c *Client) CreateDataset(ctx context.Context, dataset string) error {
	body := url.Values{"dbName": {dataset}, "dbType": {"tdb2"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/$/datasets", strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build create-dataset request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to create dataset %s: %w", dataset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpError("create dataset", resp)
	}
	return nil
}

// DropDataset removes the dataset and all its triples. Dropping an absent
// dataset is a no-op.
func (c *Client) DropDataset(ctx context.Context, dataset string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/$/datasets/"+dataset, nil)
	if err != nil {
		return fmt.Errorf("failed to build drop-dataset request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to drop dataset %s: %w", dataset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpError("drop dataset", resp)
	}
	return nil
}

// Ping checks endpoint reachability.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/$/ping", nil)
	if err != nil {
		return fmt.Errorf("failed to build ping request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph store unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpError("ping", resp)
	}
	return nil
}

// httpError folds a non-2xx response into an error carrying a body snippet.
func httpError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("graph store %s returned %s: %s", op, resp.Status, strings.TrimSpace(string(snippet)))
}
