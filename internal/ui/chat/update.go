// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	chatstore "github.com/morganforge/kestrel-tui/internal/chat"
	"github.com/morganforge/kestrel-tui/internal/session"
)

// Update handles Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		m.session.RecordActivity()
		if m.locked {
			return m, m.handleLockedKey(msg)
		}
		return m.handleKey(msg)

	case session.TickMsg:
		return m, m.session.HandleTick()

	case session.IdleLockMsg:
		m.locked = true
		m.input.Reset()
		m.input.Placeholder = "Passphrase to unlock..."
		return m, nil

	case StoreChangedMsg, RegistryChangedMsg:
		m.session.MarkDirty()
		m.refreshViewport()
		return m, nil

	case statusMsg:
		m.status = msg.text
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleKey dispatches a keystroke in the unlocked state.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Send):
		return m, m.submit()

	case key.Matches(msg, m.keys.Cancel):
		m.store.StopAnswering()
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.store.NewConversation()
		return m, nil

	case key.Matches(msg, m.keys.NextChat):
		m.selectNext()
		return m, nil

	case key.Matches(msg, m.keys.DeleteChat):
		if convKey, _ := m.store.Current(); convKey != "" {
			m.store.DeleteConversation(convKey)
		}
		return m, nil

	case key.Matches(msg, m.keys.ShareCode):
		return m, m.shareCode()

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleLockedKey collects the passphrase while idle-locked.
func (m *Model) handleLockedKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyEnter {
		passphrase := m.input.Value()
		m.input.Reset()
		if err := m.features.Auth.Verify(passphrase, ""); err != nil {
			m.status = "unlock failed"
			return nil
		}
		m.locked = false
		m.input.Placeholder = "Message Kestrel..."
		m.session.Unlock()
		m.status = ""
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// submit sends the composer content, routing slash commands first.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	m.input.Reset()

	if strings.HasPrefix(text, "/") {
		return m.handleCommand(text)
	}

	return func() tea.Msg {
		if err := m.store.SendMessage(context.Background(), text, m.transport); err != nil {
			return statusMsg{text: err.Error()}
		}
		return nil
	}
}

// handleCommand runs a slash command from the composer.
func (m *Model) handleCommand(text string) tea.Cmd {
	parts := strings.Fields(text)
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "/new":
		m.store.NewConversation()
		return nil

	case "/share":
		return m.shareCode()

	case "/import":
		if len(args) == 0 {
			return status("usage: /import <code>")
		}
		return m.importCode(args[0])

	case "/archive":
		if m.features.History == nil {
			return status("history is not enabled")
		}
		convKey, _ := m.store.Current()
		if err := m.features.History.ArchiveConversation(convKey); err != nil {
			return status(err.Error())
		}
		return status("archived")

	case "/option":
		if len(args) == 0 {
			return status("usage: /option key=value")
		}
		k, v, found := strings.Cut(args[0], "=")
		if !found {
			return status("usage: /option key=value")
		}
		if err := m.features.ChatOptions.Set(k, v); err != nil {
			return status(err.Error())
		}
		return nil

	case "/like", "/dislike":
		return m.rate(strings.TrimPrefix(cmd, "/"))

	default:
		return status("unknown command " + cmd)
	}
}

// rate records feedback on the last assistant message.
func (m *Model) rate(verdict string) tea.Cmd {
	var messageID string
	m.store.Read(func(snap *chatstore.Snapshot) {
		if snap.Current == nil {
			return
		}
		if msg := snap.Current.LastMessage(); msg != nil {
			messageID = msg.ID
		}
	})
	if messageID == "" {
		return status("nothing to rate")
	}
	if err := m.features.Feedback.Rate(messageID, verdict); err != nil {
		return status(err.Error())
	}
	return nil
}

// shareCode copies the current conversation's share code into the status
// line.
func (m *Model) shareCode() tea.Cmd {
	code, err := m.features.Share.CreateCode()
	if err != nil {
		return status(err.Error())
	}
	return status("share code: " + code)
}

// importCode restores the current conversation from a share code.
func (m *Model) importCode(code string) tea.Cmd {
	ok, err := m.features.Share.ImportCode(code)
	if err != nil {
		return status(err.Error())
	}
	if !ok {
		return status("not a valid share code")
	}
	return status("conversation restored")
}

// selectNext cycles to the next conversation in creation order.
func (m *Model) selectNext() {
	snap := m.store.Snapshot()
	if len(snap.Keys) < 2 {
		return
	}
	for i, key := range snap.Keys {
		if key == snap.CurrentKey {
			next := snap.Keys[(i+1)%len(snap.Keys)]
			m.store.SelectConversation(next)
			return
		}
	}
}

// status wraps a transient status line update as a command.
func status(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}
