// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/morganforge/kestrel-tui/internal/cloud"
	"github.com/morganforge/kestrel-tui/internal/model"
	"github.com/morganforge/kestrel-tui/internal/stream"
)

// ErrEmptyMessage indicates a send with no content.
var ErrEmptyMessage = errors.New("empty message")

// =============================================================================
// SEND MESSAGE
// =============================================================================

// SendMessage appends a user message to the current conversation and opens a
// stream for the assistant's reply.
//
// Concurrency contract: if a stream is already open on the conversation it
// is cancelled first, cooperatively, before the new one starts. This
// cancel-before-start discipline is the sole mutual exclusion between
// writers of a conversation's in-progress message.
func (s *Store) SendMessage(ctx context.Context, text string, transport Transport) error {
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.currentKey
	conv := s.conversations[key]
	if conv == nil {
		return ErrNoConversation
	}

	// Supersede any in-flight stream before touching history.
	s.cancelActiveLocked(key, conv)

	// History is the prior turns only; the new user message travels in the
	// message field.
	history := conv.Turns()

	conv.AddUserMessage(text)
	assistant := conv.AddAssistantMessage()
	rec := stream.NewReconciler(conv, assistant)

	req := &cloud.ChatRequest{
		Message: text,
		History: history,
		Context: cloud.RequestContext{
			ConversationID: conv.ID,
			Signature:      conv.ServerStateSignature,
			State:          conv.ServerState,
			UserSettings:   conv.ChatOptions,
		},
	}

	cancelTransport, err := transport.OpenStream(ctx, req, s.streamCallbacks(key, conv, rec))
	if err != nil {
		assistant.Error = err.Error()
		assistant.FinalizeStream()
		s.notifyLocked()
		return fmt.Errorf("open stream: %w", err)
	}

	s.active[key] = rec
	conv.IsLoading = true
	conv.SetCancel(func() {
		cancelTransport()
		rec.Cancel()
	})
	s.notifyLocked()
	return nil
}

// streamCallbacks wires one stream's events back into the store. Every
// callback re-checks that its reconciler is still the conversation's active
// one; a superseded stream must not mutate state that now belongs to its
// successor.
func (s *Store) streamCallbacks(key string, conv *model.Conversation, rec *stream.Reconciler) cloud.Callbacks {
	return cloud.Callbacks{
		OnMessage: func(ev stream.Event) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.active[key] != rec {
				return
			}
			if rec.Apply(ev) {
				s.notifyLocked()
			}
		},
		OnError: func(err error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.active[key] != rec {
				return
			}
			rec.Finish(err)
			delete(s.active, key)
			conv.ReleaseCancel()
			s.notifyLocked()
		},
		OnClose: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.active[key] != rec {
				return
			}
			rec.Finish(nil)
			delete(s.active, key)
			conv.ReleaseCancel()
			s.notifyLocked()
		},
	}
}

// cancelActiveLocked supersedes the conversation's open stream, if any.
// Partial content already received is kept.
func (s *Store) cancelActiveLocked(key string, conv *model.Conversation) {
	if conv.CancelStream() {
		delete(s.active, key)
	}
}

// =============================================================================
// STOP ANSWERING
// =============================================================================

// StopAnswering cancels the current conversation's in-flight stream.
// A no-op when nothing is streaming.
func (s *Store) StopAnswering() {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.conversations[s.currentKey]
	if conv == nil {
		return
	}
	if conv.CancelStream() {
		delete(s.active, s.currentKey)
		conv.IsLoading = false
		s.notifyLocked()
	}
}

// =============================================================================
// SILENT CONFIRMATION
// =============================================================================

// SendSilentConfirmation submits decisions on pending tool confirmations
// without emitting a visible message. States are updated optimistically and
// rolled back if the server call fails.
func (s *Store) SendSilentConfirmation(ctx context.Context, messageID string, decisions map[string]model.ConfirmationStatus, transport Transport) error {
	if len(decisions) == 0 {
		return nil
	}

	s.mu.Lock()

	msg := s.findMessageLocked(messageID)
	if msg == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoMessage, messageID)
	}
	conv := s.conversationOfLocked(messageID)

	applied := make([]cloud.ConfirmationDecision, 0, len(decisions))
	for id, decision := range decisions {
		if msg.ResolveConfirmation(id, decision) {
			applied = append(applied, cloud.ConfirmationDecision{ID: id, Decision: decision.String()})
		}
	}
	if len(applied) == 0 {
		s.mu.Unlock()
		return nil
	}

	serverID := msg.ServerID
	if serverID == "" {
		serverID = msg.ID
	}
	body := cloud.ConfirmationRequestBody{
		MessageID: serverID,
		Decisions: applied,
	}
	if conv != nil {
		body.Context = cloud.RequestContext{
			ConversationID: conv.ID,
			Signature:      conv.ServerStateSignature,
			State:          conv.ServerState,
		}
	}

	s.notifyLocked()
	s.mu.Unlock()

	if err := transport.SendConfirmation(ctx, body); err != nil {
		// Roll back to pending so the user can retry the decision.
		s.mu.Lock()
		for _, d := range applied {
			if msg.ConfirmationStates != nil {
				msg.ConfirmationStates[d.ID] = model.ConfirmationPending
			}
		}
		s.notifyLocked()
		s.mu.Unlock()
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

// conversationOfLocked returns the conversation containing the message.
func (s *Store) conversationOfLocked(messageID string) *model.Conversation {
	if conv := s.conversations[s.currentKey]; conv != nil && conv.Message(messageID) != nil {
		return conv
	}
	for _, conv := range s.conversations {
		if conv.Message(messageID) != nil {
			return conv
		}
	}
	return nil
}
