package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vital-ai/vital-graph/internal/loadtest"
	"github.com/vital-ai/vital-graph/internal/rdf"
	"github.com/vital-ai/vital-graph/internal/ui"
)

var benchCmd = &cobra.Command{
	Use:   "bench <space>",
	Short: "Load-test the write path with concurrent workers",
	Long: `Drive concurrent update operations against a space and report latency
and throughput.

With --overlap, workers write into a shared subject range so identical quads
race across workers, exercising the idempotent replay path. Without it each
worker writes a disjoint range.

The target space receives real writes; use a scratch space.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spaceID := args[0]
		graphID, _ := cmd.Flags().GetString("graph")
		workers, _ := cmd.Flags().GetInt("workers")
		ops, _ := cmd.Flags().GetInt("ops")
		quads, _ := cmd.Flags().GetInt("quads")
		overlap, _ := cmd.Flags().GetBool("overlap")

		store, eng, err := openStores()
		if err != nil {
			return err
		}
		defer store.Close()

		opts := loadtest.DefaultOptions()
		opts.Workers = workers
		opts.OpsPerWorker = ops
		opts.QuadsPerOp = quads
		opts.Overlap = overlap

		fmt.Printf("%s Running %d workers x %d ops x %d quads (overlap=%v)\n",
			ui.RenderAccent("▸"), workers, ops, quads, overlap)

		stats, err := loadtest.Run(cmd.Context(), eng, spaceID, rdf.IRI(graphID), opts)
		if err != nil {
			return err
		}
		fmt.Print(stats.Summary())
		if stats.Errors > 0 {
			fmt.Printf("%s %d operation(s) failed\n", ui.RenderWarn("⚠"), stats.Errors)
		}
		return nil
	},
}

func init() {
	defaults := loadtest.DefaultOptions()
	benchCmd.Flags().String("graph", defaultGraph, "graph IRI for generated quads")
	benchCmd.Flags().Int("workers", defaults.Workers, "concurrent writers")
	benchCmd.Flags().Int("ops", defaults.OpsPerWorker, "operations per worker")
	benchCmd.Flags().Int("quads", defaults.QuadsPerOp, "quads per operation")
	benchCmd.Flags().Bool("overlap", false, "workers write overlapping quad sets")

	rootCmd.AddCommand(benchCmd)
}
