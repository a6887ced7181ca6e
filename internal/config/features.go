// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// FEATURE CONFIGURATION
// =============================================================================

// Toggle is the smallest feature switch. The zero value is disabled, so a
// feature missing from the payload stays off.
type Toggle struct {
	Enabled bool `json:"enabled"`
}

// FeedbackConfig controls the per-message feedback actions independently.
type FeedbackConfig struct {
	Like    Toggle `json:"like"`
	Dislike Toggle `json:"dislike"`
}

// Active reports whether any feedback action is enabled.
func (f FeedbackConfig) Active() bool {
	return f.Like.Enabled || f.Dislike.Enabled
}

// ChatOption describes one server-defined request option the composer
// exposes, such as a model picker or a reasoning-effort selector.
type ChatOption struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Kind    string   `json:"kind"` // "select", "toggle", "text"
	Values  []string `json:"values,omitempty"`
	Default string   `json:"default,omitempty"`
}

// ChatOptionsConfig lists the options offered by the platform.
type ChatOptionsConfig struct {
	Enabled bool         `json:"enabled"`
	Options []ChatOption `json:"options,omitempty"`
}

// AuthConfig describes how the platform expects users to authenticate.
type AuthConfig struct {
	Enabled     bool     `json:"enabled"`
	Mode        string   `json:"mode,omitempty"` // "none", "password", "totp"
	Providers   []string `json:"providers,omitempty"`
	IdleTimeout int      `json:"idleTimeoutSeconds,omitempty"`
}

// UploadConfig bounds file attachments.
type UploadConfig struct {
	Enabled   bool     `json:"enabled"`
	MaxBytes  int64    `json:"maxBytes,omitempty"`
	MimeTypes []string `json:"mimeTypes,omitempty"`
}

// Strings carries server-supplied UI text overrides keyed by slot.
type Strings map[string]string

// Get returns the override for key, or fallback when absent.
func (s Strings) Get(key, fallback string) string {
	if v, ok := s[key]; ok && v != "" {
		return v
	}
	return fallback
}

// FeatureConfig is the platform's remote configuration payload. Every
// feature defaults to off; the server opts the client in.
type FeatureConfig struct {
	Feedback    FeedbackConfig    `json:"feedback"`
	ChatOptions ChatOptionsConfig `json:"chatOptions"`
	History     Toggle            `json:"history"`
	Auth        AuthConfig        `json:"auth"`
	Usage       Toggle            `json:"usage"`
	Upload      UploadConfig      `json:"upload"`
	Share       Toggle            `json:"share"`
	Strings     Strings           `json:"strings,omitempty"`
}

// DefaultFeatureConfig returns the everything-off configuration used when
// the platform cannot be reached.
func DefaultFeatureConfig() *FeatureConfig {
	return &FeatureConfig{}
}

// ParseFeatureConfig decodes the raw /config response. Unknown fields are
// ignored so older clients keep working against newer servers.
func ParseFeatureConfig(raw []byte) (*FeatureConfig, error) {
	if len(raw) == 0 {
		return DefaultFeatureConfig(), nil
	}
	var fc FeatureConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse feature config: %w", err)
	}
	return &fc, nil
}
