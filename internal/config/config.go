// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/morganforge/kestrel-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete local client configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// API connection
	Endpoint string `toml:"endpoint" json:"endpoint"`
	APIKey   string `toml:"api_key" json:"api_key"`

	// Storage
	StateDir    string `toml:"state_dir" json:"state_dir"`
	ArchivePath string `toml:"archive_path" json:"archive_path"`

	// Behavior
	AutoSaveInterval time.Duration `toml:"autosave_interval" json:"autosave_interval"`
	RequestRate      float64       `toml:"request_rate" json:"request_rate"`

	// UI
	Theme        string `toml:"theme" json:"theme"`
	ShowUsage    bool   `toml:"show_usage" json:"show_usage"`
	MarkdownWrap int    `toml:"markdown_wrap" json:"markdown_wrap"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".kestrel")
	return &Config{
		Version:          "1",
		Endpoint:         "",
		StateDir:         filepath.Join(base, "state"),
		ArchivePath:      filepath.Join(base, "archive.db"),
		AutoSaveInterval: 30 * time.Second,
		RequestRate:      5,
		Theme:            "dark",
		ShowUsage:        true,
		MarkdownWrap:     100,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".kestrel", "config.toml")
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file at path, applying defaults for anything the
// file omits and environment overrides on top. A missing file is not an
// error; defaults plus environment are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers KESTREL_* environment variables over the file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("KESTREL_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("KESTREL_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("KESTREL_STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv("KESTREL_THEME"); v != "" {
		c.Theme = v
	}
	if v := os.Getenv("KESTREL_REQUEST_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil && rate > 0 {
			c.RequestRate = rate
		}
	}
}

// Validate rejects configurations the client cannot run with.
func (c *Config) Validate() error {
	if c.AutoSaveInterval < 0 {
		return fmt.Errorf("autosave_interval must not be negative")
	}
	if c.RequestRate <= 0 {
		return fmt.Errorf("request_rate must be positive")
	}
	if c.MarkdownWrap < 0 {
		return fmt.Errorf("markdown_wrap must not be negative")
	}
	return nil
}

// Save writes the config atomically to path.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}
