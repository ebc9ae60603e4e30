// Package config loads tidymark's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tidymark configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Organize OrganizeConfig `yaml:"organize"`
	Oracle   OracleConfig   `yaml:"oracle"`
}

// StorageConfig locates the bookmark database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// OrganizeConfig tunes the categorization pipeline.
type OrganizeConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
	BatchSize  int `yaml:"batch_size"`
}

// OracleConfig selects and tunes the classification oracle.
type OracleConfig struct {
	Provider       string `yaml:"provider"` // anthropic, openai or static
	Model          string `yaml:"model"`
	Endpoint       string `yaml:"endpoint"`
	SessionBudget  int    `yaml:"session_budget"`
	TokenBuffer    int    `yaml:"token_buffer"`
	SingleAttempts int    `yaml:"single_attempts"`
	BatchAttempts  int    `yaml:"batch_attempts"`
	RetryDelayMS   int    `yaml:"retry_delay_ms"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{Path: ""}, // resolved lazily via DefaultDBPath
		Organize: OrganizeConfig{
			DebounceMS: 1000,
			BatchSize:  25,
		},
		Oracle: OracleConfig{
			Provider:       "anthropic",
			SessionBudget:  6144,
			TokenBuffer:    512,
			SingleAttempts: 5,
			BatchAttempts:  10,
			RetryDelayMS:   500,
		},
	}
}

// Load reads the config file at path, applying defaults for missing fields.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	// Re-apply defaults the file zeroed out.
	def := Default()
	if cfg.Organize.DebounceMS <= 0 {
		cfg.Organize.DebounceMS = def.Organize.DebounceMS
	}
	if cfg.Organize.BatchSize <= 0 {
		cfg.Organize.BatchSize = def.Organize.BatchSize
	}
	if cfg.Oracle.Provider == "" {
		cfg.Oracle.Provider = def.Oracle.Provider
	}
	if cfg.Oracle.SessionBudget <= 0 {
		cfg.Oracle.SessionBudget = def.Oracle.SessionBudget
	}
	if cfg.Oracle.TokenBuffer <= 0 {
		cfg.Oracle.TokenBuffer = def.Oracle.TokenBuffer
	}
	if cfg.Oracle.SingleAttempts <= 0 {
		cfg.Oracle.SingleAttempts = def.Oracle.SingleAttempts
	}
	if cfg.Oracle.BatchAttempts <= 0 {
		cfg.Oracle.BatchAttempts = def.Oracle.BatchAttempts
	}
	if cfg.Oracle.RetryDelayMS <= 0 {
		cfg.Oracle.RetryDelayMS = def.Oracle.RetryDelayMS
	}

	switch cfg.Oracle.Provider {
	case "anthropic", "openai", "static":
	default:
		return cfg, fmt.Errorf("unknown oracle provider %q", cfg.Oracle.Provider)
	}

	return cfg, nil
}

// Debounce returns the debounce interval as a duration.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.Organize.DebounceMS) * time.Millisecond
}

// RetryDelay returns the oracle retry pause as a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Oracle.RetryDelayMS) * time.Millisecond
}

// DefaultPath returns the default config path: ~/.config/tidymark/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "tidymark", "config.yaml"), nil
}

// DefaultDBPath returns the default database path:
// ~/.config/tidymark/bookmarks.db
func DefaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "tidymark", "bookmarks.db"), nil
}
