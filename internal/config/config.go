// Package config loads repodock's runtime configuration: an optional YAML
// file in the user's config directory, overridden by environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// EditorCommand is a user-supplied launch invocation tried before the
// built-in candidates for an editor.
type EditorCommand struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// Config holds the effective runtime configuration.
type Config struct {
	// StorePath is the location of the JSON store file.
	StorePath string `yaml:"store_path"`
	// Listen enables the TCP transport when set; empty means stdio.
	Listen string `yaml:"listen"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Editors maps editor identifiers (vs, ws, cs, ij, pc) to override
	// launch commands, tried in order before the built-in candidates.
	Editors map[string][]EditorCommand `yaml:"editors,omitempty"`
}

// DefaultPath returns the per-user location of the config file.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "repodock", "config.yaml")
}

// Load reads the config file at path (missing file is fine), applies
// defaults and environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{LogLevel: "info"}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults apply.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if v := os.Getenv("REPODOCK_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("REPODOCK_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("REPODOCK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if _, err := cfg.SlogLevel(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SlogLevel translates the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
}
