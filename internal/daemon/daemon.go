// Package daemon provides the background process that keeps the graph store
// honest.
//
// The daemon:
// 1. Periodically checks shortcut consistency for each configured space
// 2. Optionally repairs drift as soon as it is found
// 3. Watches the edge registry file and hot-reloads the kind table
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vital-ai/vital-graph/internal/engine"
	"github.com/vital-ai/vital-graph/internal/materialize"
)

// Checker is the slice of the engine the daemon drives.
type Checker interface {
	CheckConsistency(ctx context.Context, spaceID string) (*engine.ConsistencyReport, error)
	Repair(ctx context.Context, spaceID string) error
}

// Config holds configuration for the daemon.
type Config struct {
	// CheckInterval is how often each space is checked for drift.
	CheckInterval time.Duration

	// DebounceInterval is how long to wait after a registry file change
	// before reloading, batching rapid editor writes together.
	DebounceInterval time.Duration

	// AutoRepair repairs drift immediately instead of only reporting it.
	AutoRepair bool

	// RegistryPath is the edge registry YAML to watch. Empty disables the
	// watcher.
	RegistryPath string

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CheckInterval:    5 * time.Minute,
		DebounceInterval: 250 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates periodic consistency checks and registry reloads.
type Daemon struct {
	checker  Checker
	registry *materialize.Registry
	spaces   []string
	config   *Config

	watcher   *fsnotify.Watcher
	pendingMu sync.Mutex
	pendingAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Daemon checking the given spaces.
func New(checker Checker, registry *materialize.Registry, spaces []string, config *Config) (*Daemon, error) {
	if checker == nil {
		return nil, fmt.Errorf("checker cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		checker:  checker,
		registry: registry,
		spaces:   spaces,
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// An initial check of every space runs immediately, then checks repeat at
// the configured interval. This blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if d.config.RegistryPath != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		d.watcher = watcher
		// Watch the directory: editors replace files, and a watch on the
		// old inode would go quiet after the first save.
		if err := d.watcher.Add(filepath.Dir(d.config.RegistryPath)); err != nil {
			return fmt.Errorf("failed to watch registry directory: %w", err)
		}
		d.config.Logger.Printf("Watching edge registry: %s", d.config.RegistryPath)

		d.wg.Add(2)
		go d.watchRegistryEvents()
		go d.processPendingReload()
	}

	d.wg.Add(1)
	go d.checkLoop()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")
	d.cancel()
	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			d.config.Logger.Printf("Error closing watcher: %v", err)
		}
	}
	d.wg.Wait()
	d.config.Logger.Println("Daemon stopped")
	return nil
}

// checkLoop checks every space immediately and then on each tick.
func (d *Daemon) checkLoop() {
	defer d.wg.Done()

	d.CheckAllSpaces()

	ticker := time.NewTicker(d.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.CheckAllSpaces()
		}
	}
}

// CheckAllSpaces runs one consistency pass over every configured space.
// Individual space failures are logged and do not stop the pass.
func (d *Daemon) CheckAllSpaces() {
	for _, space := range d.spaces {
		if err := d.checkSpace(space); err != nil {
			d.config.Logger.Printf("Warning: consistency check failed for space %s: %v", space, err)
		}
	}
}

func (d *Daemon) checkSpace(space string) error {
	report, err := d.checker.CheckConsistency(d.ctx, space)
	if err != nil {
		return err
	}
	if report.Clean() {
		return nil
	}

	for _, k := range report.Kinds {
		if k.MissingShortcuts != 0 || k.OrphanShortcuts != 0 {
			d.config.Logger.Printf("Drift in space=%s kind=%s: missing=%d orphans=%d",
				space, k.Kind, k.MissingShortcuts, k.OrphanShortcuts)
		}
	}
	if !d.config.AutoRepair {
		return nil
	}
	if err := d.checker.Repair(d.ctx, space); err != nil {
		return fmt.Errorf("auto-repair failed: %w", err)
	}
	d.config.Logger.Printf("Auto-repaired space=%s", space)
	return nil
}

// watchRegistryEvents monitors filesystem events and queues reloads.
func (d *Daemon) watchRegistryEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(d.config.RegistryPath) {
				continue
			}
			d.config.Logger.Printf("Registry event: %s %s", event.Op, event.Name)
			d.pendingMu.Lock()
			d.pendingAt = time.Now()
			d.pendingMu.Unlock()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// processPendingReload reloads the registry once changes settle.
func (d *Daemon) processPendingReload() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.pendingMu.Lock()
			pending := !d.pendingAt.IsZero() && time.Since(d.pendingAt) >= d.config.DebounceInterval
			if pending {
				d.pendingAt = time.Time{}
			}
			d.pendingMu.Unlock()
			if !pending {
				continue
			}

			if err := d.registry.LoadFile(d.config.RegistryPath); err != nil {
				// Current table stays in effect.
				d.config.Logger.Printf("Warning: registry reload failed: %v", err)
				continue
			}
			d.config.Logger.Printf("Reloaded edge registry: %d kinds", len(d.registry.Kinds()))
		}
	}
}
