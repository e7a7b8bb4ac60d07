package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vital-ai/vital-graph/internal/daemon"
	"github.com/vital-ai/vital-graph/internal/engine"
	"github.com/vital-ai/vital-graph/internal/materialize"
	"github.com/vital-ai/vital-graph/internal/monitor"
	"github.com/vital-ai/vital-graph/internal/store/graphdb"
	"github.com/vital-ai/vital-graph/internal/store/rel"
	"github.com/vital-ai/vital-graph/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the consistency daemon and monitor (foreground)",
	Long: `Run the background services in foreground mode:

  - Periodic consistency checks of every configured space, with optional
    auto-repair (config: auto_repair)
  - Hot reload of the edge registry file on change
  - WebSocket monitor broadcasting commits, sync failures, and
    consistency reports

Connect a WebSocket client to ws://<monitor_addr>/ws for the event feed.

Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logWriter := io.Writer(os.Stderr)
		if cfg.LogFile != "" {
			logWriter = &lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    10, // MB
				MaxBackups: 3,
				MaxAge:     28, // days
			}
		}

		store, err := rel.Open(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open relational store: %w", err)
		}
		defer store.Close()

		client, err := graphdb.New(cfg.GraphURL, cfg.GraphTimeout)
		if err != nil {
			return fmt.Errorf("failed to create graph client: %w", err)
		}

		registry := materialize.NewRegistry()
		if cfg.EdgeRegistryPath != "" {
			if err := registry.LoadFile(cfg.EdgeRegistryPath); err != nil {
				return err
			}
		}
		mat := materialize.New(registry, client, log.New(logWriter, "[materialize] ", log.LstdFlags))

		server := monitor.NewServer(&monitor.Config{
			Addr:   cfg.MonitorAddr,
			Logger: log.New(logWriter, "[monitor] ", log.LstdFlags),
		})
		if err := server.Start(); err != nil {
			return err
		}
		defer server.Stop()

		eng := engine.New(store, client, mat, server, log.New(logWriter, "[engine] ", log.LstdFlags))

		d, err := daemon.New(eng, registry, cfg.Spaces, &daemon.Config{
			CheckInterval:    cfg.CheckInterval,
			DebounceInterval: daemon.DefaultConfig().DebounceInterval,
			AutoRepair:       cfg.AutoRepair,
			RegistryPath:     cfg.EdgeRegistryPath,
			Logger:           log.New(logWriter, "[daemon] ", log.LstdFlags),
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s Monitor listening on http://%s\n", ui.RenderAccent("▸"), server.GetAddr())
		fmt.Printf("%s Watching %d space(s), checking every %s\n", ui.RenderAccent("▸"), len(cfg.Spaces), cfg.CheckInterval)
		fmt.Println("\nPress Ctrl+C to stop")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return d.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
