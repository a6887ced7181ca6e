// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	chatstore "github.com/morganforge/kestrel-tui/internal/chat"
	"github.com/morganforge/kestrel-tui/internal/config"
	"github.com/morganforge/kestrel-tui/internal/features"
	"github.com/morganforge/kestrel-tui/internal/plugin"
	"github.com/morganforge/kestrel-tui/internal/session"
	"github.com/morganforge/kestrel-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StoreChangedMsg signals a conversation store mutation.
type StoreChangedMsg struct{}

// RegistryChangedMsg signals a plugin registry mutation.
type RegistryChangedMsg struct{}

// statusMsg sets a transient status line.
type statusMsg struct {
	text string
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	store     *chatstore.Store
	registry  *plugin.Registry
	features  *features.Set
	session   *session.Manager
	transport chatstore.Transport
	cfg       *config.Config

	// Dimensions
	width  int
	height int
	ready  bool

	// Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	keys     KeyMap

	// Markdown rendering, rebuilt on resize.
	renderer *glamour.TermRenderer

	// Render cache: skip viewport rebuilds while nothing changed.
	renderedVersion  uint64
	renderedRegistry uint64

	// Display cache, refreshed under the store lock in refreshViewport.
	// View reads only these, never live conversation state: an open
	// stream's reconciler mutates that state from the transport goroutine.
	currentKey        string
	title             string
	loading           bool
	msgCount          int
	convCount         int
	headerFragments   []string
	composerFragments []string
	statusFragments   []string

	// Transient status line.
	status string

	// Idle lock. While locked the composer collects the passphrase.
	locked bool
}

// Options configures the chat view.
type Options struct {
	Store     *chatstore.Store
	Registry  *plugin.Registry
	Features  *features.Set
	Session   *session.Manager
	Transport chatstore.Transport
	Config    *config.Config
}

// New creates the chat view.
func New(opts Options) *Model {
	input := textarea.New()
	input.Placeholder = "Message Kestrel..."
	input.CharLimit = 0
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Teal)

	return &Model{
		store:     opts.Store,
		registry:  opts.Registry,
		features:  opts.Features,
		session:   opts.Session,
		transport: opts.Transport,
		cfg:       opts.Config,
		input:     input,
		spinner:   sp,
		keys:      DefaultKeyMap(),

		// Sentinel: no store version matches, so the first refresh renders.
		renderedVersion: ^uint64(0),
	}
}

// Init starts the session tick and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(session.TickCmd(), m.spinner.Tick)
}

// resize lays the components out for a new terminal size.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	// Header, composer (3 lines + border), status line.
	viewportHeight := height - 1 - 5 - 1
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = viewportHeight
	}
	m.input.SetWidth(width - 4)

	wrap := width - 2
	if m.cfg != nil && m.cfg.MarkdownWrap > 0 && wrap > m.cfg.MarkdownWrap {
		wrap = m.cfg.MarkdownWrap
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		m.renderer = renderer
	}

	// Force a viewport rebuild at the new width.
	m.renderedVersion = ^uint64(0)
	m.refreshViewport()
}
