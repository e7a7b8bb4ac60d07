// Package loadtest provides load testing utilities for the dual-write path.
//
// This package simulates concurrent writer workloads to validate that the
// coordinator handles many simultaneous update operations, both over
// disjoint quad sets (no contention) and overlapping ones (idempotent
// replays racing each other).
package loadtest

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/vital-ai/vital-graph/internal/engine"
	"github.com/vital-ai/vital-graph/internal/rdf"
)

// Updater is the slice of the engine the harness drives.
type Updater interface {
	UpdateQuads(ctx context.Context, spaceID string, graphID rdf.IRI, deleteSet, insertSet []rdf.Quad) (*engine.Result, error)
}

// Options configures one load test run.
type Options struct {
	// Workers is the number of concurrent writers.
	Workers int

	// OpsPerWorker is how many update operations each writer performs.
	OpsPerWorker int

	// QuadsPerOp is the insert-set size of each operation.
	QuadsPerOp int

	// Overlap makes workers write into a shared subject range, so the
	// same quads race across workers. Disjoint ranges otherwise.
	Overlap bool

	// Seed makes subject selection reproducible.
	Seed int64
}

// DefaultOptions returns a moderate workload.
func DefaultOptions() Options {
	return Options{
		Workers:      10,
		OpsPerWorker: 20,
		QuadsPerOp:   5,
		Seed:         42,
	}
}

// LatencyStats captures performance metrics from load tests.
type LatencyStats struct {
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	P50          time.Duration
	P95          time.Duration
	P99          time.Duration
	TotalOps     int
	Errors       int
	SyncPending  int
	Elapsed      time.Duration
	OpsPerSecond float64
}

// Run drives Options.Workers concurrent writers against one space and
// aggregates their latencies.
func Run(ctx context.Context, updater Updater, spaceID string, graphID rdf.IRI, opts Options) (*LatencyStats, error) {
	if opts.Workers <= 0 || opts.OpsPerWorker <= 0 || opts.QuadsPerOp <= 0 {
		return nil, fmt.Errorf("workers, ops, and quads per op must all be positive")
	}

	var wg sync.WaitGroup
	resultsChan := make(chan []time.Duration, opts.Workers)
	errorsChan := make(chan error, opts.Workers)
	pendingChan := make(chan int, opts.Workers)

	start := time.Now()
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(opts.Seed + int64(workerID)))
			durations := make([]time.Duration, 0, opts.OpsPerWorker)
			pending := 0

			for j := 0; j < opts.OpsPerWorker; j++ {
				insertSet := generateQuads(workerID, j, rng, opts)

				opStart := time.Now()
				result, err := updater.UpdateQuads(ctx, spaceID, graphID, nil, insertSet)
				durations = append(durations, time.Since(opStart))

				if err != nil {
					errorsChan <- fmt.Errorf("worker %d op %d failed: %w", workerID, j, err)
					resultsChan <- durations
					return
				}
				if result.SyncPending {
					pending++
				}
			}

			pendingChan <- pending
			resultsChan <- durations
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)
	close(resultsChan)
	close(errorsChan)
	close(pendingChan)

	errorCount := 0
	for range errorsChan {
		errorCount++
	}
	pendingCount := 0
	for p := range pendingChan {
		pendingCount += p
	}

	var allDurations []time.Duration
	for durations := range resultsChan {
		allDurations = append(allDurations, durations...)
	}
	if len(allDurations) == 0 {
		return nil, fmt.Errorf("no operations completed")
	}

	stats := computeLatencyStats(allDurations)
	stats.Errors = errorCount
	stats.SyncPending = pendingCount
	stats.Elapsed = elapsed
	stats.OpsPerSecond = float64(stats.TotalOps) / elapsed.Seconds()
	return stats, nil
}

// generateQuads builds one operation's insert set. Disjoint mode prefixes
// subjects with the worker ID; overlap mode draws from one shared range so
// workers collide.
func generateQuads(workerID, op int, rng *rand.Rand, opts Options) []rdf.Quad {
	quads := make([]rdf.Quad, 0, opts.QuadsPerOp)
	for k := 0; k < opts.QuadsPerOp; k++ {
		var subject rdf.IRI
		if opts.Overlap {
			subject = rdf.IRI(fmt.Sprintf("http://example.org/load/shared-%d", rng.Intn(opts.Workers*opts.QuadsPerOp)))
		} else {
			subject = rdf.IRI(fmt.Sprintf("http://example.org/load/w%d-%d", workerID, op*opts.QuadsPerOp+k))
		}
		quads = append(quads, rdf.Quad{
			Subject:   subject,
			Predicate: rdf.IRI("http://example.org/load/value"),
			Object:    rdf.NewLiteral(fmt.Sprintf("op-%d-%d", op, k)),
		})
	}
	return quads
}

// computeLatencyStats calculates statistics from a slice of durations.
func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return &LatencyStats{
		Min:      sorted[0],
		Max:      sorted[len(sorted)-1],
		Mean:     sum / time.Duration(len(sorted)),
		P50:      sorted[len(sorted)*50/100],
		P95:      sorted[len(sorted)*95/100],
		P99:      sorted[len(sorted)*99/100],
		TotalOps: len(sorted),
	}
}

// Summary renders the statistics for terminal output.
func (s *LatencyStats) Summary() string {
	return fmt.Sprintf(`Load Test Results:
  Total Ops:     %d
  Errors:        %d
  Sync Pending:  %d
  Throughput:    %.1f ops/s
  Min:           %v
  P50 (Median):  %v
  Mean:          %v
  P95:           %v
  P99:           %v
  Max:           %v
`, s.TotalOps, s.Errors, s.SyncPending, s.OpsPerSecond, s.Min, s.P50, s.Mean, s.P95, s.P99, s.Max)
}
