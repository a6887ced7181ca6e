// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/morganforge/kestrel-tui/internal/cloud"
	"github.com/morganforge/kestrel-tui/internal/model"
	"github.com/morganforge/kestrel-tui/internal/stream"
)

// =============================================================================
// TRANSPORT CONTRACT
// =============================================================================

// Transport is the slice of the API client the store depends on.
type Transport interface {
	OpenStream(ctx context.Context, req *cloud.ChatRequest, cb cloud.Callbacks) (cloud.CancelFunc, error)
	SendConfirmation(ctx context.Context, body cloud.ConfirmationRequestBody) error
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoConversation indicates the referenced conversation is unknown.
	ErrNoConversation = errors.New("no such conversation")

	// ErrNoMessage indicates the referenced message is unknown.
	ErrNoMessage = errors.New("no such message")

	// ErrInvalidRestore indicates a restore payload failed shape validation.
	ErrInvalidRestore = errors.New("invalid restore payload")
)

// =============================================================================
// STORE
// =============================================================================

// Store holds all conversations and the reducer-style operations that
// mutate them. All mutation happens under one mutex; transport callbacks
// re-enter the store through the same lock, so listeners always observe
// complete state transitions.
type Store struct {
	mu sync.Mutex

	conversations map[string]*model.Conversation
	order         []string // creation order of conversation keys
	currentKey    string

	// active maps conversation key to the reconciler of its open stream.
	// A superseded stream's callbacks find themselves absent here and stop.
	active map[string]*stream.Reconciler

	// Reactive subscription state.
	listeners    map[int]func()
	nextListener int
	version      uint64

	// Cached snapshot, rebuilt only when version moves.
	snapshot        *Snapshot
	snapshotVersion uint64
}

// NewStore creates a store with one fresh, selected conversation.
func NewStore() *Store {
	s := &Store{
		conversations: make(map[string]*model.Conversation),
		active:        make(map[string]*stream.Reconciler),
		listeners:     make(map[int]func()),
	}
	key := model.GenerateLocalID()
	s.conversations[key] = model.NewConversation()
	s.order = append(s.order, key)
	s.currentKey = key
	return s
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers a change listener and returns its unsubscribe
// function. Every mutating operation notifies all listeners after applying
// its effect.
func (s *Store) Subscribe(listener func()) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// notifyLocked bumps the version and invokes listeners. Callers hold s.mu;
// listeners are invoked outside the lock so they can read back into the
// store without deadlocking.
func (s *Store) notifyLocked() {
	s.version++
	listeners := make([]func(), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()
	for _, l := range listeners {
		l()
	}
	s.mu.Lock()
}

// Version returns the store's mutation counter.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a point-in-time read of the store for rendering. The same
// pointer is returned until the store changes, so consumers can compare
// snapshots by reference to skip redundant work.
type Snapshot struct {
	Version       uint64
	CurrentKey    string
	Current       *model.Conversation
	Conversations []*model.Conversation
	Keys          []string
}

// Snapshot returns the cached snapshot, rebuilding it only after mutations.
//
// The snapshot's own fields are immutable, but the conversations it points at
// are live: the stream reconciler keeps mutating them under the store lock.
// Callers that walk message state must do so through Read.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Read runs fn with the current snapshot while holding the store lock, so fn
// can walk live conversation and message state without racing an open
// stream's reconciler. fn must not call back into the store.
func (s *Store) Read(fn func(snap *Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.snapshotLocked())
}

func (s *Store) snapshotLocked() *Snapshot {
	if s.snapshot != nil && s.snapshotVersion == s.version {
		return s.snapshot
	}

	snap := &Snapshot{
		Version:       s.version,
		CurrentKey:    s.currentKey,
		Current:       s.conversations[s.currentKey],
		Conversations: make([]*model.Conversation, 0, len(s.order)),
		Keys:          make([]string, 0, len(s.order)),
	}
	for _, key := range s.order {
		if conv, ok := s.conversations[key]; ok {
			snap.Conversations = append(snap.Conversations, conv)
			snap.Keys = append(snap.Keys, key)
		}
	}
	s.snapshot = snap
	s.snapshotVersion = s.version
	return snap
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// NewConversation creates and selects an empty conversation, returning its
// key. Other never-persisted idle conversations are evicted to bound memory.
func (s *Store) NewConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range append([]string(nil), s.order...) {
		conv := s.conversations[key]
		if key != s.currentKey && conv != nil && !conv.Persisted && !conv.IsLoading {
			s.removeLocked(key)
		}
	}

	key := model.GenerateLocalID()
	s.conversations[key] = model.NewConversation()
	s.order = append(s.order, key)
	s.currentKey = key
	s.notifyLocked()
	return key
}

// SelectConversation switches the current conversation pointer. Message
// state is untouched.
func (s *Store) SelectConversation(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNoConversation, key)
	}
	if key == s.currentKey {
		return nil
	}
	s.currentKey = key
	s.notifyLocked()
	return nil
}

// DeleteConversation removes a conversation, cancelling its stream if one is
// open. Deleting the current conversation selects the most recent remaining
// one, creating a fresh conversation when none is left.
func (s *Store) DeleteConversation(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoConversation, key)
	}
	conv.CancelStream()
	s.removeLocked(key)

	if s.currentKey == key {
		s.currentKey = ""
		if len(s.order) > 0 {
			s.currentKey = s.order[len(s.order)-1]
		} else {
			fresh := model.GenerateLocalID()
			s.conversations[fresh] = model.NewConversation()
			s.order = append(s.order, fresh)
			s.currentKey = fresh
		}
	}
	s.notifyLocked()
	return nil
}

// removeLocked drops a conversation from the map, order and active index.
func (s *Store) removeLocked(key string) {
	delete(s.conversations, key)
	delete(s.active, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Current returns the current conversation and its key.
func (s *Store) Current() (string, *model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentKey, s.conversations[s.currentKey]
}

// Conversation returns the conversation with the given key, or nil.
func (s *Store) Conversation(key string) *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversations[key]
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// DeleteMessage removes a message from a conversation. Dependent tasks and
// confirmations are not cascaded.
func (s *Store) DeleteMessage(convKey, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[convKey]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoConversation, convKey)
	}
	if !conv.RemoveMessage(messageID) {
		return fmt.Errorf("%w: %s", ErrNoMessage, messageID)
	}
	s.notifyLocked()
	return nil
}

// MergeExtensions shallow-merges a plugin's contribution into a message's
// extensions bag, preserving other plugins' keys. The message is looked up
// across all conversations by its client ID.
func (s *Store) MergeExtensions(messageID string, partial map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.findMessageLocked(messageID)
	if msg == nil {
		return fmt.Errorf("%w: %s", ErrNoMessage, messageID)
	}
	msg.MergeExtensions(partial)
	s.notifyLocked()
	return nil
}

// SetChatOption records a per-conversation request option. Options ride
// along on every subsequent chat request and survive share codes.
func (s *Store) SetChatOption(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.conversations[s.currentKey]
	if conv == nil {
		return ErrNoConversation
	}
	if conv.ChatOptions == nil {
		conv.ChatOptions = make(map[string]any)
	}
	if value == nil {
		delete(conv.ChatOptions, key)
	} else {
		conv.ChatOptions[key] = value
	}
	s.notifyLocked()
	return nil
}

// findMessageLocked locates a message by client ID across conversations,
// searching the current conversation first.
func (s *Store) findMessageLocked(messageID string) *model.Message {
	if conv := s.conversations[s.currentKey]; conv != nil {
		if msg := conv.Message(messageID); msg != nil {
			return msg
		}
	}
	for _, conv := range s.conversations {
		if msg := conv.Message(messageID); msg != nil {
			return msg
		}
	}
	return nil
}

// =============================================================================
// RESTORE
// =============================================================================

// RestoreState is the bulk-replacement payload used by cross-device share.
type RestoreState struct {
	History          map[string]*model.Message `json:"history"`
	FollowupMessages []string                  `json:"followupMessages"`
	ChatOptions      map[string]any            `json:"chatOptions"`
	ServerState      json.RawMessage           `json:"serverState"`
	ConversationID   string                    `json:"conversationId"`
}

// Validate checks the payload shape. Malformed input is rejected before any
// state is touched so a bad share code can never corrupt the store.
func (r *RestoreState) Validate() error {
	if r.History == nil {
		return fmt.Errorf("%w: missing history", ErrInvalidRestore)
	}
	for id, msg := range r.History {
		if msg == nil || msg.ID == "" || msg.ID != id {
			return fmt.Errorf("%w: history key %q does not match message", ErrInvalidRestore, id)
		}
		switch msg.Role {
		case model.RoleUser, model.RoleAssistant, model.RoleSystem:
		default:
			return fmt.Errorf("%w: unknown role %q", ErrInvalidRestore, msg.Role)
		}
	}
	return nil
}

// Restore bulk-replaces the current conversation's state from a validated
// payload. An open stream on the conversation is cancelled first.
func (s *Store) Restore(state *RestoreState) error {
	if state == nil {
		return ErrInvalidRestore
	}
	if err := state.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.conversations[s.currentKey]
	if conv == nil {
		return ErrNoConversation
	}
	conv.CancelStream()
	delete(s.active, s.currentKey)

	conv.ID = state.ConversationID
	conv.History = state.History
	conv.FollowupMessages = state.FollowupMessages
	conv.ChatOptions = state.ChatOptions
	conv.ServerState = state.ServerState
	conv.ServerStateSignature = ""
	conv.IsLoading = false
	conv.LastMessageID = ""
	for _, msg := range conv.Messages() {
		conv.LastMessageID = msg.ID
	}
	conv.RekeySequence()

	s.notifyLocked()
	return nil
}

// =============================================================================
// PERSISTENCE HOOKS
// =============================================================================

// AdoptConversations merges rehydrated conversations into the store. The
// one-time rehydration-merge step: restored conversations are never
// selected; the user always lands on the fresh current conversation.
func (s *Store) AdoptConversations(restored map[string]*model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(restored))
	for key, conv := range restored {
		if conv == nil {
			continue
		}
		if _, exists := s.conversations[key]; exists {
			continue
		}
		keys = append(keys, key)
	}
	// Key order, not map order: the list must come out the same across
	// restarts.
	sort.Strings(keys)

	for _, key := range keys {
		conv := restored[key]
		conv.ClearTransient()
		conv.Persisted = true
		conv.RekeySequence()
		s.conversations[key] = conv
	}
	// Restored conversations sort before the fresh current one.
	s.order = append(keys, s.order...)
	s.notifyLocked()
}

// MarkPersisted records that a conversation has been written to storage and
// is no longer eligible for temporary eviction.
func (s *Store) MarkPersisted(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[key]; ok {
		conv.Persisted = true
	}
}
