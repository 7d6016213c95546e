// Package config provides configuration management for the crawler application.
// It handles loading, validation, and access to configuration values from the
// YAML config file and environment variables via Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/kommuneai/crawler/internal/logger"
)

// Default configuration values.
const (
	// DefaultDataDir is the root of the pipeline's durable stage directories.
	DefaultDataDir = "data"
	// DefaultKommuneDir holds the per-tenant configuration documents.
	DefaultKommuneDir = "config/kommunen"
	// DefaultKommune is used when no tenant is selected via flag, config, or
	// the KOMMUNE environment variable. A selected but misconfigured tenant
	// is still a fatal error; only the unselected case falls back.
	DefaultKommune = "oldenburg-kreis"
	// DefaultHistoryPath is the SQLite file recording run summaries.
	DefaultHistoryPath = "data/runs.db"
)

// Config represents the application configuration.
type Config struct {
	// DataDir is the root directory for raw/processed/compressed/backup data.
	DataDir string `mapstructure:"data_dir"`
	// KommuneDir is the directory containing tenant configuration files.
	KommuneDir string `mapstructure:"kommune_dir"`
	// Kommune is the selected tenant identifier.
	Kommune string `mapstructure:"kommune"`
	// ValidateLinks enables the optional HEAD-request link validation stage.
	ValidateLinks bool `mapstructure:"validate_links"`
	// Render enables headless-browser rendering for web sources. When false,
	// pages are fetched statically without JavaScript execution.
	Render bool `mapstructure:"render"`
	// MaxBackups is the number of full backup archives to retain.
	MaxBackups int `mapstructure:"max_backups"`
	// HistoryPath is the SQLite database recording run summaries. Empty
	// disables run history.
	HistoryPath string `mapstructure:"history_path"`
	// Log holds the logger configuration.
	Log logger.Config `mapstructure:"log"`
}

// setDefaults registers default values with Viper.
func setDefaults() {
	viper.SetDefault("data_dir", DefaultDataDir)
	viper.SetDefault("kommune_dir", DefaultKommuneDir)
	viper.SetDefault("kommune", "")
	viper.SetDefault("validate_links", false)
	viper.SetDefault("render", true)
	viper.SetDefault("max_backups", 10)
	viper.SetDefault("history_path", DefaultHistoryPath)
	viper.SetDefault("log.level", string(logger.InfoLevel))
	viper.SetDefault("log.encoding", "console")
	viper.SetDefault("log.development", false)
}

// New builds the application configuration from Viper's current state.
// Viper must already have read the config file (see cmd.Execute).
func New() (*Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The KOMMUNE environment variable selects the tenant when neither the
	// flag nor the config file does.
	if cfg.Kommune == "" {
		cfg.Kommune = os.Getenv("KOMMUNE")
	}
	if cfg.Kommune == "" {
		cfg.Kommune = DefaultKommune
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for values that would break the pipeline.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.KommuneDir == "" {
		return fmt.Errorf("kommune_dir must not be empty")
	}
	if c.MaxBackups < 1 {
		return fmt.Errorf("max_backups must be at least 1, got %d", c.MaxBackups)
	}
	return nil
}

// StageDir returns the path of a stage directory (raw, processed, compressed,
// backup) under the data root.
func (c *Config) StageDir(stage string) string {
	return filepath.Join(c.DataDir, stage)
}
