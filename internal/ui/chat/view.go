// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	chatstore "github.com/morganforge/kestrel-tui/internal/chat"
	"github.com/morganforge/kestrel-tui/internal/model"
	"github.com/morganforge/kestrel-tui/internal/plugin"
	"github.com/morganforge/kestrel-tui/internal/ui/styles"
	"github.com/morganforge/kestrel-tui/internal/util"
)

// View renders the full chat screen.
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}
	if m.locked {
		return m.viewLocked()
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteByte('\n')
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')
	b.WriteString(m.viewComposer())
	b.WriteByte('\n')
	b.WriteString(m.viewStatus())
	return b.String()
}

// viewLocked renders the idle-lock screen.
func (m *Model) viewLocked() string {
	var b strings.Builder
	b.WriteString(styles.LockBanner.Render("Session locked"))
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("Enter your passphrase to continue."))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	if m.status != "" {
		b.WriteString("\n" + styles.ErrorText.Render(m.status))
	}
	return b.String()
}

// viewHeader renders the title line plus plugin header fragments.
func (m *Model) viewHeader() string {
	header := styles.Header.Render(util.TruncateWidth(m.title, m.width/2))
	if len(m.headerFragments) > 0 {
		header += "  " + styles.HeaderExtra.Render(strings.Join(m.headerFragments, " | "))
	}
	return header
}

// viewComposer renders the input box with accessory fragments.
func (m *Model) viewComposer() string {
	composer := styles.ComposerBorder.Width(m.width - 2).Render(m.input.View())
	if len(m.composerFragments) > 0 {
		composer += "\n" + styles.MutedText.Render(strings.Join(m.composerFragments, "  "))
	}
	return composer
}

// viewStatus renders the bottom status line.
func (m *Model) viewStatus() string {
	var parts []string
	if m.loading {
		parts = append(parts, m.spinner.View()+"answering (esc to stop)")
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	parts = append(parts, m.statusFragments...)

	if m.convCount > 1 {
		parts = append(parts, fmt.Sprintf("%d conversations", m.convCount))
	}

	return styles.StatusBar.Render(util.TruncateWidth(strings.Join(parts, "  |  "), m.width))
}

// =============================================================================
// CONVERSATION RENDERING
// =============================================================================

// refreshViewport re-renders the conversation transcript and the display
// cache when the store or registry moved since the last render.
//
// All of it happens inside store.Read: the transcript walks streaming
// message state the reconciler mutates from the transport goroutine, so the
// walk must hold the store lock. Slot fillers therefore run under the lock
// too and must read only their props, never the store.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	regVersion := m.registry.Version()

	var content string
	changed := false
	m.store.Read(func(snap *chatstore.Snapshot) {
		if snap.Version == m.renderedVersion && regVersion == m.renderedRegistry {
			return
		}
		m.renderedVersion = snap.Version
		m.renderedRegistry = regVersion

		m.currentKey = snap.CurrentKey
		m.convCount = len(snap.Keys)
		m.title = "Kestrel"
		m.loading = false
		m.msgCount = 0
		if snap.Current != nil {
			m.title = snap.Current.GetTitle()
			m.loading = snap.Current.IsLoading
			m.msgCount = snap.Current.MessageCount()
		}

		m.headerFragments = plugin.RenderSlot(m.registry, plugin.HeaderProps{
			ConversationTitle: m.title,
			UserID:            m.features.Auth.UserID(),
		})
		m.composerFragments = plugin.RenderSlot(m.registry, plugin.ComposerAccessoryProps{
			ConversationKey: snap.CurrentKey,
			IsLoading:       m.loading,
			Conversation:    snap.Current,
		})
		m.statusFragments = plugin.RenderSlot(m.registry, plugin.StatusBarProps{
			ConversationKey: snap.CurrentKey,
			MessageCount:    m.msgCount,
			IsLoading:       m.loading,
			Conversation:    snap.Current,
		})

		content = m.renderConversation(snap.CurrentKey, snap.Current)
		changed = true
	})
	if !changed {
		return
	}

	wasAtBottom := m.viewport.AtBottom()
	m.viewport.SetContent(content)
	if wasAtBottom {
		m.viewport.GotoBottom()
	}
}

// renderConversation renders every message in sequence order.
func (m *Model) renderConversation(key string, conv *model.Conversation) string {
	if conv == nil || conv.MessageCount() == 0 {
		return styles.MutedText.Render("Start a conversation.")
	}

	var b strings.Builder
	for _, msg := range conv.Messages() {
		b.WriteString(m.renderMessage(key, msg))
		b.WriteByte('\n')
	}
	return b.String()
}

// renderMessage renders one message with its attachments, live updates,
// tasks, confirmations and plugin actions.
func (m *Model) renderMessage(convKey string, msg *model.Message) string {
	var b strings.Builder
	b.WriteString(roleLabel(msg.Role))
	b.WriteByte('\n')

	content := msg.DisplayContent()
	if msg.Role == model.RoleAssistant && !msg.IsStreaming && m.renderer != nil {
		if rendered, err := m.renderer.Render(content); err == nil {
			content = strings.TrimRight(rendered, "\n")
		}
	}
	b.WriteString(content)
	b.WriteByte('\n')

	for _, update := range msg.LiveUpdates {
		b.WriteString(styles.MutedText.Render("· "+update.Text) + "\n")
	}

	if msg.Tasks != nil && msg.Tasks.Len() > 0 {
		b.WriteString(m.renderTasks(msg.Tasks))
	}

	for _, ref := range msg.References {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("[%s] %s", ref.Title, ref.URL)) + "\n")
	}

	for _, req := range msg.ConfirmationRequests {
		b.WriteString(m.renderConfirmation(msg, req))
	}

	if msg.Error != "" {
		b.WriteString(styles.ErrorText.Render("error: "+msg.Error) + "\n")
	}

	actions := plugin.RenderSlot(m.registry, plugin.MessageActionsProps{
		ConversationKey: convKey,
		Message:         msg,
	})
	if len(actions) > 0 {
		b.WriteString(styles.ActionText.Render(strings.Join(actions, "  ")) + "\n")
	}

	return b.String()
}

// renderTasks renders the task tree with indentation and progress.
func (m *Model) renderTasks(tasks *model.TaskTree) string {
	var b strings.Builder
	b.WriteString(styles.MutedText.Render(
		fmt.Sprintf("tasks %d/%d", tasks.CompletedCount(), tasks.Len())) + "\n")

	tasks.Walk(func(item *model.TaskItem, depth int) {
		indent := strings.Repeat("  ", depth+1)
		switch item.Status {
		case model.TaskCompleted:
			b.WriteString(indent + styles.TaskDone.Render("[x] "+item.Description) + "\n")
		case model.TaskInProgress:
			b.WriteString(indent + styles.TaskPending.Render("[~] "+item.Description) + "\n")
		default:
			b.WriteString(indent + styles.TaskPending.Render("[ ] "+item.Description) + "\n")
		}
	})
	return b.String()
}

// renderConfirmation renders one tool confirmation request and its state.
func (m *Model) renderConfirmation(msg *model.Message, req model.ConfirmationRequest) string {
	state := msg.ConfirmationStates[req.ID]
	line := fmt.Sprintf("confirm %s: %s [%s]", req.ToolName, req.Description, state)
	if state == model.ConfirmationPending {
		return styles.TaskPending.Render(line) + "\n"
	}
	return styles.MutedText.Render(line) + "\n"
}

// roleLabel renders the styled speaker label.
func roleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return styles.UserLabel.Render("You")
	case model.RoleAssistant:
		return styles.AssistantLabel.Render("Kestrel")
	default:
		return styles.SystemLabel.Render("System")
	}
}
