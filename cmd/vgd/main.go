// Command vgd manages hybrid graph spaces: a relational quad store as the
// authority and a SPARQL graph store as the derived query copy.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vital-ai/vital-graph/internal/config"
	"github.com/vital-ai/vital-graph/internal/engine"
	"github.com/vital-ai/vital-graph/internal/materialize"
	"github.com/vital-ai/vital-graph/internal/store/graphdb"
	"github.com/vital-ai/vital-graph/internal/store/rel"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vgd",
	Short: "Hybrid graph space manager",
	Long: `vgd keeps a relational quad store and a SPARQL graph store consistent.

The relational store (SQLite, one database per space) is authoritative and
transactional. The graph store (a SPARQL 1.1 endpoint) is a derived copy
optimized for pattern queries, kept in step after each commit and repairable
whenever it drifts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./vitalgraph.yaml)")
}

// openStores builds the engine stack from configuration: relational store,
// graph client, edge registry, materializer.
func openStores() (*rel.Store, *engine.Engine, error) {
	store, err := rel.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open relational store: %w", err)
	}

	client, err := graphdb.New(cfg.GraphURL, cfg.GraphTimeout)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create graph client: %w", err)
	}

	registry := materialize.NewRegistry()
	if cfg.EdgeRegistryPath != "" {
		if err := registry.LoadFile(cfg.EdgeRegistryPath); err != nil {
			store.Close()
			return nil, nil, err
		}
	}

	mat := materialize.New(registry, client, nil)
	return store, engine.New(store, client, mat, nil, nil), nil
}
