// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the Kestrel TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// COLORS
// =============================================================================

// Teal - Primary accent, assistant messages, selections
var Teal = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}

// Blue - User messages, links
var Blue = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}

// Rose - Errors, destructive actions
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings, pending confirmations
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Emerald - Success, completed tasks
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextMuted - Hints, timestamps, live updates
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// Overlay - Borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// =============================================================================
// STYLES
// =============================================================================

var (
	// Header is the conversation header line.
	Header = lipgloss.NewStyle().Bold(true).Foreground(Teal)

	// HeaderExtra renders plugin header fragments.
	HeaderExtra = lipgloss.NewStyle().Foreground(TextMuted)

	// UserLabel prefixes user messages.
	UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Blue)

	// AssistantLabel prefixes assistant messages.
	AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Teal)

	// SystemLabel prefixes system messages.
	SystemLabel = lipgloss.NewStyle().Bold(true).Foreground(Amber)

	// ErrorText renders stream failures.
	ErrorText = lipgloss.NewStyle().Foreground(Rose)

	// MutedText renders live updates, timestamps and hints.
	MutedText = lipgloss.NewStyle().Foreground(TextMuted)

	// ActionText renders message action fragments.
	ActionText = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	// StatusBar is the bottom status line.
	StatusBar = lipgloss.NewStyle().Foreground(TextMuted)

	// TaskDone renders completed task items.
	TaskDone = lipgloss.NewStyle().Foreground(Emerald)

	// TaskPending renders pending and in-progress task items.
	TaskPending = lipgloss.NewStyle().Foreground(Amber)

	// ComposerBorder frames the input area.
	ComposerBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(Overlay)

	// LockBanner renders the idle-lock overlay.
	LockBanner = lipgloss.NewStyle().Bold(true).Foreground(Amber)
)

// HasDarkBackground reports the detected terminal background.
func HasDarkBackground() bool {
	return termenv.HasDarkBackground()
}
