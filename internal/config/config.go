// Package config loads runtime configuration from file, environment, and
// defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the daemon and CLI read.
type Config struct {
	// DataDir is the directory holding one SQLite database per space.
	DataDir string `mapstructure:"data_dir"`

	// GraphURL is the base URL of the SPARQL endpoint.
	GraphURL string `mapstructure:"graph_url"`

	// GraphTimeout bounds each graph-store request.
	GraphTimeout time.Duration `mapstructure:"graph_timeout"`

	// EdgeRegistryPath optionally overrides the built-in edge kind table.
	// Empty means built-ins only.
	EdgeRegistryPath string `mapstructure:"edge_registry_path"`

	// MonitorAddr is the listen address of the websocket monitor.
	MonitorAddr string `mapstructure:"monitor_addr"`

	// CheckInterval is how often the daemon checks shortcut consistency.
	CheckInterval time.Duration `mapstructure:"check_interval"`

	// AutoRepair makes the daemon repair drift as soon as it is found.
	AutoRepair bool `mapstructure:"auto_repair"`

	// Spaces lists the spaces the daemon watches.
	Spaces []string `mapstructure:"spaces"`

	// LogFile enables rotated file logging for serve mode. Empty means
	// stderr.
	LogFile string `mapstructure:"log_file"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		DataDir:       ".vitalgraph",
		GraphURL:      "http://localhost:3030",
		GraphTimeout:  30 * time.Second,
		MonitorAddr:   "localhost:9720",
		CheckInterval: 5 * time.Minute,
	}
}

// Load reads configuration from the given file (optional), the environment
// (VGD_ prefix), and defaults, in descending precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("graph_url", defaults.GraphURL)
	v.SetDefault("graph_timeout", defaults.GraphTimeout)
	v.SetDefault("edge_registry_path", "")
	v.SetDefault("monitor_addr", defaults.MonitorAddr)
	v.SetDefault("check_interval", defaults.CheckInterval)
	v.SetDefault("auto_repair", false)
	v.SetDefault("spaces", []string{})
	v.SetDefault("log_file", "")

	v.SetEnvPrefix("VGD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("vitalgraph")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/vitalgraph")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.GraphURL == "" {
		return fmt.Errorf("graph_url must not be empty")
	}
	if c.GraphTimeout <= 0 {
		return fmt.Errorf("graph_timeout must be positive")
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive")
	}
	return nil
}
