// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"

	"github.com/morganforge/kestrel-tui/internal/model"
)

// =============================================================================
// EVENT KINDS
// =============================================================================

// EventKind identifies one kind of server-pushed event.
type EventKind string

const (
	EventText           EventKind = "text"
	EventReference      EventKind = "reference"
	EventMessageID      EventKind = "message_id"
	EventConversationID EventKind = "conversation_id"
	EventStateUpdate    EventKind = "state_update"
	EventLiveUpdate     EventKind = "live_update"
	EventFollowups      EventKind = "followup_messages"
	EventImage          EventKind = "image"
	EventTask           EventKind = "task"
	EventTaskUpdate     EventKind = "task_update"
	EventConfirmation   EventKind = "confirmation_request"
	EventUsage          EventKind = "usage"
	EventError          EventKind = "error"
)

// =============================================================================
// EVENT TYPE
// =============================================================================

// Event is one decoded unit of server-pushed data during assistant response
// generation. Content carries a kind-specific payload.
type Event struct {
	Type    EventKind       `json:"type"`
	Content json.RawMessage `json:"content"`
}

// ParseEvent decodes the wire form of a stream event.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(data, &ev)
	return ev, err
}

// =============================================================================
// PAYLOAD TYPES
// =============================================================================

// StatePayload replaces the conversation's opaque server state.
type StatePayload struct {
	State     json.RawMessage `json:"state"`
	Signature string          `json:"signature"`
}

// ImagePayload upserts one generated image by ID.
type ImagePayload struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// UsagePayload accumulates token counters for one model.
type UsagePayload struct {
	Model string      `json:"model"`
	Usage model.Usage `json:"usage"`
}

// ErrorPayload reports an abnormal stream termination.
type ErrorPayload struct {
	Message string `json:"message"`
}

// =============================================================================
// EVENT CONSTRUCTORS (test and transport helpers)
// =============================================================================

// NewEvent builds an event of the given kind from any JSON-encodable payload.
// Marshal failures yield an event with empty content, which the reconciler
// treats as malformed and skips.
func NewEvent(kind EventKind, payload any) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{Type: kind}
	}
	return Event{Type: kind, Content: raw}
}

// TextEvent builds a text-chunk event.
func TextEvent(chunk string) Event {
	return NewEvent(EventText, chunk)
}
