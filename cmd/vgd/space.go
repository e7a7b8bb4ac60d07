package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vital-ai/vital-graph/internal/rdf"
	"github.com/vital-ai/vital-graph/internal/store/rel"
	"github.com/vital-ai/vital-graph/internal/ui"
)

const defaultGraph = "http://vital.ai/graph/default"

var initCmd = &cobra.Command{
	Use:   "init <space>",
	Short: "Create a space in both stores",
	Long: `Create the relational database and the graph dataset for a space.

Safe to run on an existing space; both halves are idempotent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spaceID := args[0]
		if err := rel.ValidateSpaceID(spaceID); err != nil {
			return err
		}

		store, eng, err := openStores()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := eng.InitSpace(cmd.Context(), spaceID); err != nil {
			return err
		}
		fmt.Printf("%s Initialized space %s\n", ui.RenderPass("✓"), spaceID)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <space> [update-text]",
	Short: "Apply declarative update text to a space",
	Long: `Parse and apply SPARQL-style update text against a space.

Supported forms: INSERT DATA, DELETE DATA, DELETE ... WHERE,
DELETE ... INSERT ... WHERE, and the DELETE WHERE shorthand.
Pattern-bound deletes are resolved with a read query against the graph
store before anything is written.

The update text comes from the argument, --file, or stdin.

Examples:
  vgd update myspace 'INSERT DATA { <urn:a> <urn:knows> <urn:b> . }'
  vgd update myspace --file changes.ru
  cat changes.ru | vgd update myspace`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		spaceID := args[0]
		graphID, _ := cmd.Flags().GetString("graph")
		file, _ := cmd.Flags().GetString("file")

		text, err := readUpdateText(args, file)
		if err != nil {
			return err
		}

		store, eng, err := openStores()
		if err != nil {
			return err
		}
		defer store.Close()

		result, err := eng.ApplyUpdateText(cmd.Context(), spaceID, rdf.IRI(graphID), text)
		if err != nil {
			return err
		}
		printResult(result.Deleted, result.Inserted, result.SyncPending)
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <space> [query-text]",
	Short: "Run a read query against a space",
	Long: `Run a SPARQL SELECT query against the graph store copy of a space.

Without query text, lists the asserted triples of the default graph,
excluding materialized shortcut triples.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		spaceID := args[0]
		graphID, _ := cmd.Flags().GetString("graph")
		limit, _ := cmd.Flags().GetInt("limit")

		store, eng, err := openStores()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		var rows []map[string]rdf.Term
		if len(args) == 2 {
			rows, err = eng.Query(ctx, spaceID, args[1])
		} else {
			rows, err = eng.SelectTriples(ctx, spaceID, rdf.IRI(graphID), limit)
		}
		if err != nil {
			return err
		}

		if len(rows) == 0 {
			fmt.Println(ui.RenderDim("(no results)"))
			return nil
		}
		for _, row := range rows {
			printBinding(row)
		}
		fmt.Printf("\n%s\n", ui.RenderDim(fmt.Sprintf("%d result(s)", len(rows))))
		return nil
	},
}

// readUpdateText picks the update text source: inline argument, file, or
// stdin.
func readUpdateText(args []string, file string) (string, error) {
	if len(args) == 2 {
		return args[1], nil
	}
	if file != "" {
		// #nosec G304 - controlled path from CLI
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read update file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func printBinding(row map[string]rdf.Term) {
	first := true
	for _, name := range []string{"s", "p", "o"} {
		if term, ok := row[name]; ok {
			if !first {
				fmt.Print("  ")
			}
			fmt.Print(term.String())
			first = false
		}
	}
	if !first {
		fmt.Println()
		return
	}
	// Arbitrary projection: print var=value pairs.
	for name, term := range row {
		fmt.Printf("%s=%s  ", name, term.String())
	}
	fmt.Println()
}

func printResult(deleted, inserted int, syncPending bool) {
	fmt.Printf("%s Committed: -%d +%d quads\n", ui.RenderPass("✓"), deleted, inserted)
	if syncPending {
		fmt.Printf("%s Graph sync pending; run 'vgd repair' or 'vgd rebuild' to close the gap\n", ui.RenderWarn("⚠"))
	}
}

func init() {
	updateCmd.Flags().String("graph", defaultGraph, "default graph IRI for quads without one")
	updateCmd.Flags().StringP("file", "f", "", "read update text from file")
	queryCmd.Flags().String("graph", defaultGraph, "graph IRI to list")
	queryCmd.Flags().Int("limit", 100, "max results when listing triples (0 = no limit)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(queryCmd)
}
