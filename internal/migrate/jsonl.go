// Package migrate moves quads between spaces and JSON Lines files.
//
// Export streams straight from the relational store, the authority. Import
// applies quads through the engine so dual-write and materialization
// semantics hold for migrated data exactly as for live writes.
package migrate

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/vital-ai/vital-graph/internal/engine"
	"github.com/vital-ai/vital-graph/internal/rdf"
	"github.com/vital-ai/vital-graph/internal/store/rel"
)

// DefaultBatchSize is the number of quads applied per engine operation
// during import.
const DefaultBatchSize = 500

// Applier is the slice of the engine the importer needs.
type Applier interface {
	AddQuads(ctx context.Context, spaceID string, graphID rdf.IRI, quads []rdf.Quad) (*engine.Result, error)
}

// ExportResult contains statistics about an export.
type ExportResult struct {
	QuadsWritten int
}

// ImportResult contains statistics about an import.
type ImportResult struct {
	QuadsImported int
	Batches       int

	// SyncPending is true when at least one batch committed but could not
	// be replayed against the graph store.
	SyncPending bool
}

// Export writes every quad of a space to w, one JSON object per line.
func Export(ctx context.Context, store *rel.Store, spaceID string, w io.Writer) (*ExportResult, error) {
	bw := bufio.NewWriter(w)
	result := &ExportResult{}

	err := store.AllQuads(ctx, spaceID, func(q rdf.Quad) error {
		data, err := rdf.MarshalQuad(q)
		if err != nil {
			return fmt.Errorf("failed to encode quad %s: %w", q.String(), err)
		}
		if _, err := bw.Write(data); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
		result.QuadsWritten++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export space %s: %w", spaceID, err)
	}
	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush export: %w", err)
	}
	return result, nil
}

// ExportFile exports a space to a JSONL file.
func ExportFile(ctx context.Context, store *rel.Store, spaceID, path string) (*ExportResult, error) {
	// #nosec G304 - controlled path from CLI
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	result, err := Export(ctx, store, spaceID, file)
	if err != nil {
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close export file: %w", err)
	}
	return result, nil
}

// Import reads JSONL quads from r and applies them to a space in batches.
// Quads with no graph are placed in graphID.
func Import(ctx context.Context, applier Applier, spaceID string, graphID rdf.IRI, r io.Reader, batchSize int) (*ImportResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	result := &ImportResult{}
	var batch []rdf.Quad
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		res, err := applier.AddQuads(ctx, spaceID, graphID, batch)
		if err != nil {
			return fmt.Errorf("failed to apply batch %d: %w", result.Batches+1, err)
		}
		if res.SyncPending {
			result.SyncPending = true
		}
		result.QuadsImported += len(batch)
		result.Batches++
		batch = batch[:0]
		return nil
	}

	decoder := json.NewDecoder(r)
	lineNum := 0
	for {
		var rec rdf.QuadRecord
		if err := decoder.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("invalid JSON at line %d: %w", lineNum+1, err)
		}
		lineNum++

		if rec.Graph == "" {
			rec.Graph = string(graphID)
		}
		q, err := rec.ToQuad()
		if err != nil {
			return nil, fmt.Errorf("invalid quad at line %d: %w", lineNum, err)
		}
		batch = append(batch, q)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return result, nil
}

// ImportFile imports a JSONL file into a space.
func ImportFile(ctx context.Context, applier Applier, spaceID string, graphID rdf.IRI, path string, batchSize int) (*ImportResult, error) {
	// #nosec G304 - controlled path from CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	return Import(ctx, applier, spaceID, graphID, file, batchSize)
}
