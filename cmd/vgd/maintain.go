package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/vital-ai/vital-graph/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check <space>",
	Short: "Check shortcut consistency between the stores",
	Long: `Count, per edge kind, live edges missing their shortcut triple and
shortcut triples whose edge no longer exists.

A non-clean report means the graph store drifted (a failed sync or an
in-place edge reassignment); run 'vgd repair' or 'vgd rebuild'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spaceID := args[0]

		store, eng, err := openStores()
		if err != nil {
			return err
		}
		defer store.Close()

		report, err := eng.CheckConsistency(cmd.Context(), spaceID)
		if err != nil {
			return err
		}

		fmt.Printf("\n%s\n\n", ui.RenderHeader("Consistency: "+spaceID))
		for _, k := range report.Kinds {
			marker := ui.RenderPass("✓")
			if k.MissingShortcuts != 0 || k.OrphanShortcuts != 0 {
				marker = ui.RenderFail("✗")
			}
			fmt.Printf("  %s %-16s missing=%d orphans=%d\n", marker, k.Kind, k.MissingShortcuts, k.OrphanShortcuts)
		}
		fmt.Println()

		if report.Clean() {
			fmt.Printf("%s Stores agree\n", ui.RenderPass("✓"))
			return nil
		}
		fmt.Printf("%s Drift detected; run 'vgd repair %s'\n", ui.RenderWarn("⚠"), spaceID)
		return nil
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair <space>",
	Short: "Repair shortcut drift in place",
	Long: `Close both drift directions for every edge kind: derive shortcuts for
edges that lack one, retract shortcuts whose edge is gone. Cheaper than a
full rebuild and safe to run at any time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spaceID := args[0]

		store, eng, err := openStores()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := eng.Repair(cmd.Context(), spaceID); err != nil {
			return err
		}
		fmt.Printf("%s Repaired shortcuts for %s\n", ui.RenderPass("✓"), spaceID)
		return nil
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <space>",
	Short: "Rebuild the graph store copy from the relational store",
	Long: `Drop the graph dataset and reload it from the relational store, the
authority, then re-derive every shortcut triple.

This discards the entire graph copy first. Readers of the space see partial
data until the rebuild finishes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spaceID := args[0]
		force, _ := cmd.Flags().GetBool("force")

		if !force {
			confirmed := false
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Drop and rebuild the graph copy of %q?", spaceID)).
					Description("The graph dataset is discarded and reloaded from the relational store.").
					Affirmative("Rebuild").
					Negative("Cancel").
					Value(&confirmed),
			))
			if err := form.Run(); err != nil {
				return err
			}
			if !confirmed {
				fmt.Println(ui.RenderDim("Cancelled"))
				return nil
			}
		}

		store, eng, err := openStores()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := eng.RebuildGraphStore(cmd.Context(), spaceID); err != nil {
			return err
		}
		fmt.Printf("%s Rebuilt graph store for %s\n", ui.RenderPass("✓"), spaceID)
		return nil
	},
}

func init() {
	rebuildCmd.Flags().Bool("force", false, "skip the confirmation prompt")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(rebuildCmd)
}
