// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/morganforge/kestrel-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// SUPPORTING TYPES
// =============================================================================

// Reference is a citation attached to an assistant message.
// References are append-only while a stream is open.
type Reference struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content,omitempty"`
}

// LiveUpdate is a transient status annotation shown while the assistant is
// generating (e.g. "searching the web"). A later update with the same ID
// supersedes the earlier one; it does not append.
type LiveUpdate struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Usage holds token and cost counters for one model, accumulated across a
// message's generation.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost,omitempty"`
}

// Add accumulates another usage sample into this one.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Cost += other.Cost
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// The client-generated ID is stable for the session; ServerID is assigned
// once the server acknowledges the message. Assistant messages are mutated
// incrementally by the stream reconciler while a stream is open.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	ServerID  string    `json:"server_id,omitempty"`
	Role      Role      `json:"role"`
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// Streaming state (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`

	// Stream-populated annotations
	References  []Reference       `json:"references,omitempty"`
	LiveUpdates []LiveUpdate      `json:"live_updates,omitempty"`
	Images      map[string]string `json:"images,omitempty"`

	// Execution plan (optional)
	Tasks *TaskTree `json:"tasks,omitempty"`

	// Tool confirmations
	ConfirmationRequests []ConfirmationRequest         `json:"confirmation_requests,omitempty"`
	ConfirmationStates   map[string]ConfirmationStatus `json:"confirmation_states,omitempty"`

	// Terminal state
	Error string `json:"error,omitempty"`

	// Accounting, keyed by model identifier
	Usage map[string]Usage `json:"usage,omitempty"`

	// Extensions is an open bag for plugin-contributed metadata.
	// Use MergeExtensions so one plugin's write never clobbers another's keys.
	Extensions map[string]any `json:"extensions,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new streaming assistant message.
func NewAssistantMessage() *Message {
	return &Message{
		ID:          generateMessageID(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// =============================================================================
// STREAMING CONTENT
// =============================================================================

// AppendContent appends a text chunk to a streaming message.
func (m *Message) AppendContent(chunk string) {
	if m.IsStreaming {
		m.streamContent.WriteString(chunk)
		return
	}
	m.Content += chunk
}

// FinalizeStream merges streamed content into Content and clears the
// streaming flag. Safe to call on a non-streaming message.
func (m *Message) FinalizeStream() {
	if !m.IsStreaming {
		return
	}
	m.Content += m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false
}

// DisplayContent returns the content to display (streaming or final).
func (m *Message) DisplayContent() string {
	if m.IsStreaming {
		return m.Content + m.streamContent.String()
	}
	return m.Content
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	return util.TruncateRunes(m.DisplayContent(), maxLen)
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// =============================================================================
// ANNOTATIONS
// =============================================================================

// AddReference appends a citation. References are never removed or reordered
// during a stream.
func (m *Message) AddReference(ref Reference) {
	m.References = append(m.References, ref)
}

// UpsertLiveUpdate inserts or replaces the live update with the given ID,
// preserving the position of a replaced entry.
func (m *Message) UpsertLiveUpdate(update LiveUpdate) {
	for i, existing := range m.LiveUpdates {
		if existing.ID == update.ID {
			m.LiveUpdates[i] = update
			return
		}
	}
	m.LiveUpdates = append(m.LiveUpdates, update)
}

// ClearLiveUpdates removes all transient status annotations. Called when
// generation completes and content supersedes the status display.
func (m *Message) ClearLiveUpdates() {
	m.LiveUpdates = nil
}

// SetImage records an image URL by ID, replacing any earlier URL.
func (m *Message) SetImage(id, url string) {
	if m.Images == nil {
		m.Images = make(map[string]string)
	}
	m.Images[id] = url
}

// AddUsage accumulates usage counters for the given model.
func (m *Message) AddUsage(modelID string, usage Usage) {
	if m.Usage == nil {
		m.Usage = make(map[string]Usage)
	}
	total := m.Usage[modelID]
	total.Add(usage)
	m.Usage[modelID] = total
}

// MergeExtensions shallow-merges a plugin's contribution into the extensions
// bag, preserving keys the partial does not mention.
func (m *Message) MergeExtensions(partial map[string]any) {
	if len(partial) == 0 {
		return
	}
	if m.Extensions == nil {
		m.Extensions = make(map[string]any, len(partial))
	}
	for k, v := range partial {
		m.Extensions[k] = v
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateMessageID creates a unique client-side message ID.
func generateMessageID() string {
	return "msg_" + uuid.NewString()
}
