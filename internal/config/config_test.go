// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AutoSaveInterval != 30*time.Second {
		t.Errorf("AutoSaveInterval = %v", cfg.AutoSaveInterval)
	}
	if cfg.RequestRate != 5 {
		t.Errorf("RequestRate = %v", cfg.RequestRate)
	}
	if cfg.Theme != "dark" {
		t.Errorf("Theme = %q", cfg.Theme)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `endpoint = "https://kestrel.internal/v1"
api_key = "sk-local"
theme = "light"
markdown_wrap = 80
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Endpoint != "https://kestrel.internal/v1" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.APIKey != "sk-local" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.MarkdownWrap != 80 {
		t.Errorf("MarkdownWrap = %d", cfg.MarkdownWrap)
	}
	// Unspecified fields keep their defaults.
	if cfg.RequestRate != 5 {
		t.Errorf("RequestRate = %v, want default", cfg.RequestRate)
	}
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`endpoint = "https://from-file/v1"`), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KESTREL_ENDPOINT", "https://from-env/v1")
	t.Setenv("KESTREL_REQUEST_RATE", "2.5")
	t.Setenv("KESTREL_THEME", "light")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Endpoint != "https://from-env/v1" {
		t.Errorf("Endpoint = %q, env must win", cfg.Endpoint)
	}
	if cfg.RequestRate != 2.5 {
		t.Errorf("RequestRate = %v", cfg.RequestRate)
	}
	if cfg.Theme != "light" {
		t.Errorf("Theme = %q", cfg.Theme)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`request_rate = -1.0`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("negative request_rate must be rejected")
	}

	if err := os.WriteFile(path, []byte(`this is not toml {{{`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed toml must be rejected")
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Endpoint = "https://kestrel.internal/v1"
	cfg.MarkdownWrap = 72

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Endpoint != cfg.Endpoint || loaded.MarkdownWrap != 72 {
		t.Errorf("loaded = %+v", loaded)
	}
}

// =============================================================================
// FEATURE CONFIG TESTS
// =============================================================================

func TestParseFeatureConfig(t *testing.T) {
	raw := []byte(`{
		"feedback": {"like": {"enabled": true}, "dislike": {"enabled": false}},
		"chatOptions": {"enabled": true, "options": [
			{"key": "model", "label": "Model", "kind": "select", "values": ["small", "large"], "default": "small"}
		]},
		"auth": {"enabled": true, "mode": "password", "idleTimeoutSeconds": 300},
		"upload": {"enabled": true, "maxBytes": 1048576, "mimeTypes": ["image/*"]},
		"strings": {"composer.placeholder": "Ask anything"},
		"futureFeature": {"enabled": true}
	}`)

	fc, err := ParseFeatureConfig(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if !fc.Feedback.Like.Enabled || fc.Feedback.Dislike.Enabled {
		t.Errorf("feedback = %+v", fc.Feedback)
	}
	if !fc.Feedback.Active() {
		t.Error("Active() = false with like enabled")
	}
	if !fc.ChatOptions.Enabled || len(fc.ChatOptions.Options) != 1 {
		t.Errorf("chatOptions = %+v", fc.ChatOptions)
	}
	if fc.ChatOptions.Options[0].Default != "small" {
		t.Errorf("option default = %q", fc.ChatOptions.Options[0].Default)
	}
	if fc.Auth.Mode != "password" || fc.Auth.IdleTimeout != 300 {
		t.Errorf("auth = %+v", fc.Auth)
	}
	if fc.Upload.MaxBytes != 1048576 {
		t.Errorf("upload = %+v", fc.Upload)
	}
	// Features absent from the payload stay off.
	if fc.History.Enabled || fc.Usage.Enabled || fc.Share.Enabled {
		t.Error("absent features must default to disabled")
	}
	if got := fc.Strings.Get("composer.placeholder", "fallback"); got != "Ask anything" {
		t.Errorf("strings override = %q", got)
	}
	if got := fc.Strings.Get("missing.key", "fallback"); got != "fallback" {
		t.Errorf("strings fallback = %q", got)
	}
}

func TestParseFeatureConfig_EmptyAndInvalid(t *testing.T) {
	fc, err := ParseFeatureConfig(nil)
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if fc.Feedback.Active() || fc.Auth.Enabled {
		t.Error("empty payload must mean everything off")
	}

	if _, err := ParseFeatureConfig([]byte("not json")); err == nil {
		t.Error("malformed payload must error, not silently disable")
	}
}
