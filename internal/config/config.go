// Package config reads runtime settings from MDPLAN_* environment variables.
// Command-line flags override them.
package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix.
const Prefix = "MDPLAN"

// Config holds all runtime configuration.
type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"warn"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"` // "console" or "json"

	// Color given to critical tasks that declare none
	CriticalColor string `envconfig:"CRITICAL_COLOR" default:"#ff0000"`

	// Projects analyzed concurrently
	MaxParallel int `envconfig:"MAX_PARALLEL" default:"4"`

	// SQLite ledger store, empty disables persistence
	StorePath string `envconfig:"STORE_PATH"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges after flags have been applied.
func (c *Config) Validate() error {
	if c.MaxParallel < 1 {
		return fmt.Errorf("max parallel must be at least 1, got %d", c.MaxParallel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// JSONLogs reports whether logs should be written as JSON lines.
func (c *Config) JSONLogs() bool {
	return strings.EqualFold(c.LogFormat, "json")
}
