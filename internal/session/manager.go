// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks one client session.
type Manager struct {
	mu sync.Mutex

	sessionID    string
	startTime    time.Time
	lastActivity time.Time

	// Idle lock. Zero timeout disables it.
	idleTimeout time.Duration
	locked      bool

	// Autosave
	autoSaveEnabled  bool
	autoSaveInterval time.Duration
	lastAutoSave     time.Time
	dirty            bool

	onAutoSave func() error
	onIdleLock func()
}

// Config holds session manager settings.
type Config struct {
	// IdleTimeout locks the session after this much inactivity.
	// Zero disables the idle lock.
	IdleTimeout time.Duration

	// AutoSaveEnabled enables periodic saving of dirty state.
	AutoSaveEnabled bool

	// AutoSaveInterval is the minimum gap between autosaves.
	AutoSaveInterval time.Duration
}

// DefaultConfig returns the default session settings.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:      0,
		AutoSaveEnabled:  true,
		AutoSaveInterval: 30 * time.Second,
	}
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	now := time.Now()
	return &Manager{
		sessionID:        "sess_" + uuid.NewString(),
		startTime:        now,
		lastActivity:     now,
		idleTimeout:      cfg.IdleTimeout,
		autoSaveEnabled:  cfg.AutoSaveEnabled,
		autoSaveInterval: cfg.AutoSaveInterval,
		lastAutoSave:     now,
	}
}

// SessionID returns the session identifier.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Duration returns how long the session has been running.
func (m *Manager) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.startTime)
}

// =============================================================================
// ACTIVITY AND DIRTY TRACKING
// =============================================================================

// RecordActivity notes user input. Called on every keystroke. Unlocking a
// locked session goes through Unlock after re-authentication.
func (m *Manager) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()
}

// MarkDirty flags unsaved conversation state.
func (m *Manager) MarkDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = true
}

// MarkClean records a successful save.
func (m *Manager) MarkClean() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = false
	m.lastAutoSave = time.Now()
}

// IsDirty reports whether unsaved state exists.
func (m *Manager) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

// =============================================================================
// IDLE LOCK
// =============================================================================

// SetIdleTimeout updates the idle lock timeout. Zero disables the lock.
func (m *Manager) SetIdleTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idleTimeout = d
	if d == 0 {
		m.locked = false
	}
}

// SetAutoSaveInterval updates the autosave interval; zero or negative
// disables autosave.
func (m *Manager) SetAutoSaveInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoSaveInterval = d
	m.autoSaveEnabled = d > 0
}

// IsLocked reports whether the session is idle-locked.
func (m *Manager) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

// Unlock clears the idle lock after successful re-authentication.
func (m *Manager) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = false
	m.lastActivity = time.Now()
}

// =============================================================================
// CALLBACKS
// =============================================================================

// SetAutoSaveCallback sets the function invoked to persist dirty state.
func (m *Manager) SetAutoSaveCallback(fn func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAutoSave = fn
}

// SetIdleLockCallback sets the function invoked when the session locks.
func (m *Manager) SetIdleLockCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onIdleLock = fn
}

// =============================================================================
// PERIODIC CHECK
// =============================================================================

// Check evaluates autosave and idle-lock state, firing callbacks outside
// the lock. Returns true when the session is usable (not idle-locked).
func (m *Manager) Check() bool {
	m.mu.Lock()
	shouldSave := m.autoSaveEnabled && m.dirty &&
		time.Since(m.lastAutoSave) >= m.autoSaveInterval

	justLocked := false
	if m.idleTimeout > 0 && !m.locked &&
		time.Since(m.lastActivity) >= m.idleTimeout {
		m.locked = true
		justLocked = true
	}
	locked := m.locked

	onAutoSave := m.onAutoSave
	onIdleLock := m.onIdleLock
	m.mu.Unlock()

	if shouldSave && onAutoSave != nil {
		if err := onAutoSave(); err == nil {
			m.MarkClean()
		}
	}
	if justLocked && onIdleLock != nil {
		onIdleLock()
	}

	return !locked
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent periodically to drive Check.
type TickMsg struct {
	Time time.Time
}

// IdleLockMsg indicates the session just idle-locked.
type IdleLockMsg struct{}

// TickCmd returns a command that ticks once per second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick runs Check and returns the follow-up commands.
func (m *Manager) HandleTick() tea.Cmd {
	wasLocked := m.IsLocked()
	usable := m.Check()

	cmds := []tea.Cmd{TickCmd()}
	if !usable && !wasLocked {
		cmds = append(cmds, func() tea.Msg { return IdleLockMsg{} })
	}
	return tea.Batch(cmds...)
}
