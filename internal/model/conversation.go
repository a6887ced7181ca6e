// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// MaxMessages is the maximum number of messages to keep in conversation
// history. When exceeded, old messages are pruned to prevent unbounded
// memory growth.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds one chat thread: keyed message history plus the state
// of an in-flight assistant stream.
//
// The server assigns ID on the first response; until then it is empty.
// History is keyed by client message ID; display order comes from each
// message's Seq, never from map iteration order.
type Conversation struct {
	// Identity
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages
	History       map[string]*Message `json:"history"`
	LastMessageID string              `json:"last_message_id,omitempty"`
	nextSeq       int

	// Server-suggested next prompts; cleared when a new user message lands.
	FollowupMessages []string `json:"followup_messages,omitempty"`

	// Opaque server-managed conversation state, replayed on every request.
	// The server, not the client, is the source of truth for semantic state.
	ServerState          json.RawMessage `json:"server_state,omitempty"`
	ServerStateSignature string          `json:"server_state_signature,omitempty"`

	// Per-conversation user settings merged into request context.
	ChatOptions map[string]any `json:"chat_options,omitempty"`

	// Transient stream state (never persisted)
	IsLoading bool               `json:"-"`
	cancel    context.CancelFunc `json:"-"`

	// Persisted is set once the conversation has been written to storage.
	// Never-persisted conversations are eligible for temporary eviction.
	Persisted bool `json:"persisted,omitempty"`
}

// NewConversation creates a new empty conversation. The ID stays empty until
// the server assigns one.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		CreatedAt: now,
		UpdatedAt: now,
		History:   make(map[string]*Message),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage inserts a message into the history, assigning its insertion
// sequence and advancing LastMessageID.
func (c *Conversation) AddMessage(msg *Message) {
	if c.History == nil {
		c.History = make(map[string]*Message)
	}
	msg.Seq = c.nextSeq
	c.nextSeq++
	c.History[msg.ID] = msg
	c.LastMessageID = msg.ID
	c.UpdatedAt = time.Now()
	c.updateTitle()
	c.pruneOldMessages()
}

// AddUserMessage creates and adds a user message. Followup suggestions are
// cleared; they referred to the previous turn.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	c.FollowupMessages = nil
	return msg
}

// AddAssistantMessage creates and adds a streaming assistant message.
func (c *Conversation) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	c.AddMessage(msg)
	return msg
}

// Message returns the message with the given client ID, or nil.
func (c *Conversation) Message(id string) *Message {
	return c.History[id]
}

// LastMessage returns the most recently added message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	return c.History[c.LastMessageID]
}

// Messages returns the history ordered by insertion sequence.
func (c *Conversation) Messages() []*Message {
	msgs := make([]*Message, 0, len(c.History))
	for _, msg := range c.History {
		msgs = append(msgs, msg)
	}
	sort.Slice(msgs, func(a, b int) bool {
		return msgs[a].Seq < msgs[b].Seq
	})
	return msgs
}

// RemoveMessage removes a message by ID. Dependent tasks and confirmations
// are not cascaded; that is the caller's responsibility.
func (c *Conversation) RemoveMessage(id string) bool {
	if _, ok := c.History[id]; !ok {
		return false
	}
	delete(c.History, id)
	c.UpdatedAt = time.Now()
	if c.LastMessageID == id {
		c.LastMessageID = ""
		for _, msg := range c.Messages() {
			c.LastMessageID = msg.ID
		}
	}
	return true
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.History)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.History) == 0
}

// =============================================================================
// STREAM OWNERSHIP
// =============================================================================

// SetCancel stores the cancellation handle for the in-flight stream.
// The conversation owns the handle exclusively.
func (c *Conversation) SetCancel(cancel context.CancelFunc) {
	c.cancel = cancel
}

// CancelStream invokes and releases the stored cancellation handle.
// Safe to call when no stream is active.
func (c *Conversation) CancelStream() bool {
	if c.cancel == nil {
		return false
	}
	c.cancel()
	c.cancel = nil
	return true
}

// ReleaseCancel drops the cancellation handle without invoking it, for use
// after the stream has closed on its own.
func (c *Conversation) ReleaseCancel() {
	c.cancel = nil
}

// HasActiveStream reports whether a cancellation handle is held.
func (c *Conversation) HasActiveStream() bool {
	return c.cancel != nil
}

// ClearTransient resets stream state that cannot survive a restart.
// Used by rehydration: a persisted IsLoading flag is stale by construction.
func (c *Conversation) ClearTransient() {
	c.IsLoading = false
	c.cancel = nil
	for _, msg := range c.History {
		msg.FinalizeStream()
	}
}

// =============================================================================
// REQUEST SERIALIZATION
// =============================================================================

// Turn is one prior conversation turn as replayed to the server.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turns serializes the prior history for a request payload, skipping empty
// and system-internal messages.
func (c *Conversation) Turns() []Turn {
	msgs := c.Messages()
	turns := make([]Turn, 0, len(msgs))
	for _, msg := range msgs {
		content := msg.DisplayContent()
		if content == "" {
			continue
		}
		turns = append(turns, Turn{Role: msg.Role.String(), Content: content})
	}
	return turns
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle auto-generates a title from the first user message if unset.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}
	for _, msg := range c.Messages() {
		if msg.Role == RoleUser {
			c.Title = msg.Preview(50)
			return
		}
	}
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// RekeySequence renumbers message sequence values after a bulk restore so
// that future inserts continue past the restored history.
func (c *Conversation) RekeySequence() {
	maxSeq := -1
	for _, msg := range c.History {
		if msg.Seq > maxSeq {
			maxSeq = msg.Seq
		}
	}
	c.nextSeq = maxSeq + 1
}

// GenerateLocalID creates a client-local conversation identifier for
// bookkeeping before the server has assigned one.
func GenerateLocalID() string {
	return "conv_" + uuid.NewString()
}

// pruneOldMessages removes the oldest messages when the history exceeds
// MaxMessages.
func (c *Conversation) pruneOldMessages() {
	if len(c.History) <= MaxMessages {
		return
	}
	msgs := c.Messages()
	for _, msg := range msgs[:len(msgs)-MaxMessages] {
		delete(c.History, msg.ID)
	}
}
