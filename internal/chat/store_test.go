// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/morganforge/kestrel-tui/internal/model"
)

// =============================================================================
// SNAPSHOT AND SUBSCRIPTION TESTS
// =============================================================================

func TestStore_SnapshotReferentiallyStable(t *testing.T) {
	store := NewStore()

	first := store.Snapshot()
	second := store.Snapshot()
	if first != second {
		t.Error("unchanged store must return the same snapshot pointer")
	}

	store.NewConversation()
	third := store.Snapshot()
	if third == first {
		t.Error("snapshot must change after a mutation")
	}
}

func TestStore_SubscribeAndUnsubscribe(t *testing.T) {
	store := NewStore()

	calls := 0
	unsubscribe := store.Subscribe(func() { calls++ })

	store.NewConversation()
	if calls == 0 {
		t.Fatal("listener not notified")
	}

	seen := calls
	unsubscribe()
	store.NewConversation()
	if calls != seen {
		t.Error("listener notified after unsubscribe")
	}
}

func TestStore_ListenerMayReadBack(t *testing.T) {
	store := NewStore()

	// A listener reading store state must not deadlock.
	store.Subscribe(func() {
		store.Snapshot()
	})
	store.NewConversation()
}

// =============================================================================
// CONVERSATION LIFECYCLE TESTS
// =============================================================================

func TestStore_NewConversationEvictsIdleUnpersisted(t *testing.T) {
	store := NewStore()
	firstKey, _ := store.Current()

	secondKey := store.NewConversation()
	if key, _ := store.Current(); key != secondKey {
		t.Fatalf("current = %q, want newly created %q", key, secondKey)
	}

	// The untouched, never-persisted first conversation is evicted.
	if store.Conversation(firstKey) != nil {
		t.Error("idle unpersisted conversation should be evicted")
	}
}

func TestStore_NewConversationKeepsPersisted(t *testing.T) {
	store := NewStore()
	firstKey, _ := store.Current()
	store.MarkPersisted(firstKey)

	store.NewConversation()
	if store.Conversation(firstKey) == nil {
		t.Error("persisted conversation must survive")
	}
}

func TestStore_DeleteConversationSelectsRemaining(t *testing.T) {
	store := NewStore()
	firstKey, _ := store.Current()
	store.MarkPersisted(firstKey)
	secondKey := store.NewConversation()

	if err := store.DeleteConversation(secondKey); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if key, _ := store.Current(); key != firstKey {
		t.Errorf("current = %q, want %q", key, firstKey)
	}
}

func TestStore_DeleteLastConversationCreatesFresh(t *testing.T) {
	store := NewStore()
	key, _ := store.Current()

	if err := store.DeleteConversation(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	newKey, conv := store.Current()
	if newKey == "" || conv == nil {
		t.Fatal("store must always hold a selected conversation")
	}
	if newKey == key {
		t.Error("a fresh conversation should replace the deleted one")
	}
}

func TestStore_SelectConversationUnknown(t *testing.T) {
	store := NewStore()
	if err := store.SelectConversation("nope"); !errors.Is(err, ErrNoConversation) {
		t.Errorf("err = %v, want ErrNoConversation", err)
	}
}

// =============================================================================
// EXTENSIONS AND OPTIONS TESTS
// =============================================================================

func TestStore_MergeExtensionsAcrossPlugins(t *testing.T) {
	store := NewStore()
	_, conv := store.Current()
	msg := conv.AddUserMessage("hi")

	if err := store.MergeExtensions(msg.ID, map[string]any{"feedback": "like"}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := store.MergeExtensions(msg.ID, map[string]any{"bookmark": true}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	if msg.Extensions["feedback"] != "like" || msg.Extensions["bookmark"] != true {
		t.Errorf("Extensions = %v, one plugin's write clobbered another's", msg.Extensions)
	}

	if err := store.MergeExtensions("missing", map[string]any{"x": 1}); !errors.Is(err, ErrNoMessage) {
		t.Errorf("err = %v, want ErrNoMessage", err)
	}
}

func TestStore_SetChatOption(t *testing.T) {
	store := NewStore()

	if err := store.SetChatOption("model", "kestrel-large"); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, conv := store.Current()
	if conv.ChatOptions["model"] != "kestrel-large" {
		t.Errorf("ChatOptions = %v", conv.ChatOptions)
	}

	if err := store.SetChatOption("model", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := conv.ChatOptions["model"]; ok {
		t.Error("nil value must delete the option")
	}
}

// =============================================================================
// RESTORE TESTS
// =============================================================================

func validRestoreState() *RestoreState {
	return &RestoreState{
		History: map[string]*model.Message{
			"m1": {ID: "m1", Role: model.RoleUser, Seq: 0, Content: "restored question"},
			"m2": {ID: "m2", Role: model.RoleAssistant, Seq: 1, Content: "restored answer"},
		},
		FollowupMessages: []string{"and then?"},
		ChatOptions:      map[string]any{"model": "kestrel-large"},
		ServerState:      json.RawMessage(`{"k":"v"}`),
		ConversationID:   "conv-99",
	}
}

func TestStore_RestoreReplacesCurrentConversation(t *testing.T) {
	store := NewStore()
	_, conv := store.Current()
	conv.AddUserMessage("old content")

	if err := store.Restore(validRestoreState()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	_, conv = store.Current()
	if conv.ID != "conv-99" {
		t.Errorf("ID = %q, want conv-99", conv.ID)
	}
	if conv.MessageCount() != 2 {
		t.Errorf("messages = %d, want 2 (bulk replacement)", conv.MessageCount())
	}
	if conv.Message("m1") == nil {
		t.Error("restored message missing")
	}

	// Sequence continues past the restored history.
	added := conv.AddUserMessage("new")
	if added.Seq != 2 {
		t.Errorf("Seq = %d, want 2", added.Seq)
	}
}

func TestStore_RestoreValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RestoreState)
	}{
		{"missing history", func(s *RestoreState) { s.History = nil }},
		{"key mismatch", func(s *RestoreState) {
			s.History["m1"].ID = "other"
		}},
		{"unknown role", func(s *RestoreState) {
			s.History["m1"].Role = "wizard"
		}},
		{"nil message", func(s *RestoreState) { s.History["m3"] = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			state := validRestoreState()
			tt.mutate(state)
			if err := store.Restore(state); !errors.Is(err, ErrInvalidRestore) {
				t.Errorf("err = %v, want ErrInvalidRestore", err)
			}
		})
	}
}

// =============================================================================
// REHYDRATION TESTS
// =============================================================================

func TestStore_AdoptConversationsNeverStealsSelection(t *testing.T) {
	store := NewStore()
	currentKey, _ := store.Current()

	restored := model.NewConversation()
	restored.AddUserMessage("from disk")
	restored.IsLoading = true // stale persisted flag

	store.AdoptConversations(map[string]*model.Conversation{"conv_disk": restored})

	if key, _ := store.Current(); key != currentKey {
		t.Error("rehydration must not change the selected conversation")
	}

	adopted := store.Conversation("conv_disk")
	if adopted == nil {
		t.Fatal("adopted conversation missing")
	}
	if adopted.IsLoading {
		t.Error("stale IsLoading must be repaired on adoption")
	}
	if !adopted.Persisted {
		t.Error("adopted conversations are persisted by definition")
	}

	// Existing keys are never overwritten.
	replacement := model.NewConversation()
	store.AdoptConversations(map[string]*model.Conversation{"conv_disk": replacement})
	if store.Conversation("conv_disk") != adopted {
		t.Error("adoption must not overwrite an existing conversation")
	}
}

func TestStore_AdoptConversationsStableOrder(t *testing.T) {
	restored := make(map[string]*model.Conversation)
	for _, key := range []string{"conv_c", "conv_a", "conv_b"} {
		conv := model.NewConversation()
		conv.AddUserMessage("from " + key)
		restored[key] = conv
	}

	store := NewStore()
	currentKey, _ := store.Current()
	store.AdoptConversations(restored)

	// Map iteration order must not leak into the list: every restart puts
	// the restored conversations in the same place.
	want := []string{"conv_a", "conv_b", "conv_c", currentKey}
	got := store.Snapshot().Keys
	if len(got) != len(want) {
		t.Fatalf("Keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// =============================================================================
// LOCKED READ TESTS
// =============================================================================

func TestStore_ReadSharesCachedSnapshot(t *testing.T) {
	store := NewStore()
	var fromRead *Snapshot
	store.Read(func(snap *Snapshot) { fromRead = snap })
	if fromRead != store.Snapshot() {
		t.Error("Read and Snapshot must hand out the same cached snapshot")
	}
}
