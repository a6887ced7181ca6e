// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"

	"github.com/morganforge/kestrel-tui/internal/model"
)

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler applies a sequence of server events for one in-flight assistant
// turn onto its target message and conversation.
//
// The reconciler is the only writer of the in-progress message while a
// stream is open; the store's cancel-before-start discipline guarantees at
// most one reconciler per conversation.
type Reconciler struct {
	conv *model.Conversation
	msg  *model.Message

	// canceled stops further event application. Events already in flight
	// over the network are discarded; partial content is retained.
	canceled bool
	finished bool
}

// NewReconciler creates a reconciler for one assistant turn.
func NewReconciler(conv *model.Conversation, msg *model.Message) *Reconciler {
	return &Reconciler{conv: conv, msg: msg}
}

// Message returns the target in-progress message.
func (r *Reconciler) Message() *model.Message {
	return r.msg
}

// =============================================================================
// EVENT APPLICATION
// =============================================================================

// Apply dispatches one event onto the target state. Events are applied
// strictly in call order. Malformed payloads and unknown kinds are skipped;
// a forward-compatible server may emit kinds this client does not know.
// Returns true if the event changed any state.
func (r *Reconciler) Apply(ev Event) bool {
	if r.canceled || r.finished {
		return false
	}

	switch ev.Type {
	case EventText:
		var chunk string
		if err := json.Unmarshal(ev.Content, &chunk); err != nil || chunk == "" {
			return false
		}
		r.msg.AppendContent(chunk)

	case EventReference:
		var ref model.Reference
		if err := json.Unmarshal(ev.Content, &ref); err != nil {
			return false
		}
		r.msg.AddReference(ref)

	case EventMessageID:
		var serverID string
		if err := json.Unmarshal(ev.Content, &serverID); err != nil || serverID == "" {
			return false
		}
		r.msg.ServerID = serverID

	case EventConversationID:
		var convID string
		if err := json.Unmarshal(ev.Content, &convID); err != nil || convID == "" {
			return false
		}
		// First assignment only; the server never re-keys a conversation.
		if r.conv.ID != "" {
			return false
		}
		r.conv.ID = convID

	case EventStateUpdate:
		var payload StatePayload
		if err := json.Unmarshal(ev.Content, &payload); err != nil {
			return false
		}
		r.conv.ServerState = payload.State
		r.conv.ServerStateSignature = payload.Signature

	case EventLiveUpdate:
		var update model.LiveUpdate
		if err := json.Unmarshal(ev.Content, &update); err != nil || update.ID == "" {
			return false
		}
		r.msg.UpsertLiveUpdate(update)

	case EventFollowups:
		var followups []string
		if err := json.Unmarshal(ev.Content, &followups); err != nil {
			return false
		}
		r.conv.FollowupMessages = followups

	case EventImage:
		var img ImagePayload
		if err := json.Unmarshal(ev.Content, &img); err != nil || img.ID == "" {
			return false
		}
		r.msg.SetImage(img.ID, img.URL)

	case EventTask, EventTaskUpdate:
		var item model.TaskItem
		if err := json.Unmarshal(ev.Content, &item); err != nil || item.ID == "" {
			return false
		}
		if r.msg.Tasks == nil {
			r.msg.Tasks = model.NewTaskTree()
		}
		r.msg.Tasks.Upsert(item)

	case EventConfirmation:
		var req model.ConfirmationRequest
		if err := json.Unmarshal(ev.Content, &req); err != nil || req.ID == "" {
			return false
		}
		r.msg.AddConfirmationRequest(req)

	case EventUsage:
		var usage UsagePayload
		if err := json.Unmarshal(ev.Content, &usage); err != nil || usage.Model == "" {
			return false
		}
		r.msg.AddUsage(usage.Model, usage.Usage)

	case EventError:
		var payload ErrorPayload
		if err := json.Unmarshal(ev.Content, &payload); err != nil {
			return false
		}
		r.fail(payload.Message)

	default:
		return false
	}

	return true
}

// =============================================================================
// TERMINATION
// =============================================================================

// Cancel stops the reconciler. Content received so far is kept; showing what
// arrived is the product behavior for a user-initiated stop.
func (r *Reconciler) Cancel() {
	if r.finished {
		return
	}
	r.canceled = true
	r.msg.FinalizeStream()
	r.conv.IsLoading = false
}

// Finish completes the turn after the transport closed the stream. A nil err
// is a normal close; a non-nil err marks the message failed. Live updates
// are cleared on a clean close: generated content supersedes them.
func (r *Reconciler) Finish(err error) {
	if r.finished {
		return
	}
	r.finished = true
	r.msg.FinalizeStream()
	if err != nil && r.msg.Error == "" && !r.canceled {
		r.msg.Error = err.Error()
	}
	if err == nil && !r.canceled {
		r.msg.ClearLiveUpdates()
	}
	r.conv.IsLoading = false
}

// Canceled reports whether Cancel has been called.
func (r *Reconciler) Canceled() bool {
	return r.canceled
}

// fail records an abnormal termination reported by the server itself.
func (r *Reconciler) fail(message string) {
	if message == "" {
		message = "the server reported an error"
	}
	r.msg.Error = message
	r.msg.FinalizeStream()
	r.conv.IsLoading = false
}
