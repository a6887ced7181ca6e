// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// STREAMING CONTENT TESTS
// =============================================================================

func TestMessage_StreamingAppend(t *testing.T) {
	msg := NewAssistantMessage()

	if !msg.IsStreaming {
		t.Fatal("new assistant message should be streaming")
	}

	msg.AppendContent("Hello")
	msg.AppendContent(", ")
	msg.AppendContent("world")

	if got := msg.DisplayContent(); got != "Hello, world" {
		t.Errorf("DisplayContent = %q, want %q", got, "Hello, world")
	}

	msg.FinalizeStream()
	if msg.IsStreaming {
		t.Error("message still streaming after finalize")
	}
	if msg.Content != "Hello, world" {
		t.Errorf("Content = %q, want %q", msg.Content, "Hello, world")
	}
}

func TestMessage_AppendPerCharacterPreservesOrder(t *testing.T) {
	want := "The quick brown fox"

	msg := NewAssistantMessage()
	for _, r := range want {
		msg.AppendContent(string(r))
	}
	msg.FinalizeStream()

	if msg.Content != want {
		t.Errorf("Content = %q, want %q", msg.Content, want)
	}
}

func TestMessage_AppendIgnoredAfterFinalize(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendContent("done")
	msg.FinalizeStream()
	msg.AppendContent(" extra")

	if msg.Content != "done" {
		t.Errorf("Content = %q, want %q", msg.Content, "done")
	}
}

func TestMessage_Preview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		maxLen  int
		want    string
	}{
		{"fits", "short", 10, "short"},
		{"truncated", strings.Repeat("a", 100), 10, strings.Repeat("a", 7) + "..."},
		{"budget too small for ellipsis", "hello world", 2, "he"},
		{"budget of one", "hello world", 1, "h"},
		{"zero budget", "hello world", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewUserMessage(tt.content).Preview(tt.maxLen); got != tt.want {
				t.Errorf("Preview(%d) = %q, want %q", tt.maxLen, got, tt.want)
			}
		})
	}
}

// =============================================================================
// LIVE UPDATE TESTS
// =============================================================================

func TestMessage_UpsertLiveUpdateReplacesInPlace(t *testing.T) {
	msg := NewAssistantMessage()

	msg.UpsertLiveUpdate(LiveUpdate{ID: "search", Text: "searching"})
	msg.UpsertLiveUpdate(LiveUpdate{ID: "fetch", Text: "fetching"})
	msg.UpsertLiveUpdate(LiveUpdate{ID: "search", Text: "found 3 results"})

	if len(msg.LiveUpdates) != 2 {
		t.Fatalf("LiveUpdates count = %d, want 2", len(msg.LiveUpdates))
	}
	// Same ID keeps its position and replaces the text.
	if msg.LiveUpdates[0].Text != "found 3 results" {
		t.Errorf("LiveUpdates[0].Text = %q, want %q", msg.LiveUpdates[0].Text, "found 3 results")
	}
	if msg.LiveUpdates[1].ID != "fetch" {
		t.Errorf("LiveUpdates[1].ID = %q, want %q", msg.LiveUpdates[1].ID, "fetch")
	}

	msg.ClearLiveUpdates()
	if len(msg.LiveUpdates) != 0 {
		t.Errorf("LiveUpdates count after clear = %d, want 0", len(msg.LiveUpdates))
	}
}

// =============================================================================
// USAGE TESTS
// =============================================================================

func TestMessage_AddUsageAccumulates(t *testing.T) {
	msg := NewAssistantMessage()

	msg.AddUsage("kestrel-large", Usage{InputTokens: 100, OutputTokens: 20, Cost: 0.01})
	msg.AddUsage("kestrel-large", Usage{OutputTokens: 30, Cost: 0.02})
	msg.AddUsage("kestrel-small", Usage{InputTokens: 5})

	large := msg.Usage["kestrel-large"]
	if large.InputTokens != 100 || large.OutputTokens != 50 {
		t.Errorf("kestrel-large usage = %+v, want 100 in / 50 out", large)
	}
	if large.Cost != 0.03 {
		t.Errorf("kestrel-large cost = %v, want 0.03", large.Cost)
	}
	if msg.Usage["kestrel-small"].InputTokens != 5 {
		t.Errorf("kestrel-small input = %d, want 5", msg.Usage["kestrel-small"].InputTokens)
	}
}

// =============================================================================
// EXTENSIONS TESTS
// =============================================================================

func TestMessage_MergeExtensionsPreservesOtherKeys(t *testing.T) {
	msg := NewAssistantMessage()

	msg.MergeExtensions(map[string]any{"feedback": "like"})
	msg.MergeExtensions(map[string]any{"pinned": true})

	if msg.Extensions["feedback"] != "like" {
		t.Errorf("feedback = %v, want like", msg.Extensions["feedback"])
	}
	if msg.Extensions["pinned"] != true {
		t.Errorf("pinned = %v, want true", msg.Extensions["pinned"])
	}

	// Mentioned keys are overwritten, unmentioned keys survive.
	msg.MergeExtensions(map[string]any{"feedback": "dislike"})
	if msg.Extensions["feedback"] != "dislike" {
		t.Errorf("feedback = %v, want dislike", msg.Extensions["feedback"])
	}
	if msg.Extensions["pinned"] != true {
		t.Error("pinned key lost by unrelated merge")
	}
}

// =============================================================================
// CONFIRMATION TESTS
// =============================================================================

func TestMessage_ConfirmationLifecycle(t *testing.T) {
	msg := NewAssistantMessage()

	msg.AddConfirmationRequest(ConfirmationRequest{ID: "c1", ToolName: "delete_file"})
	msg.AddConfirmationRequest(ConfirmationRequest{ID: "c1", ToolName: "duplicate"})
	if len(msg.ConfirmationRequests) != 1 {
		t.Fatalf("requests = %d, want 1 (dedup by ID)", len(msg.ConfirmationRequests))
	}
	if msg.ConfirmationStates["c1"] != ConfirmationPending {
		t.Errorf("state = %q, want pending", msg.ConfirmationStates["c1"])
	}

	if !msg.ResolveConfirmation("c1", ConfirmationConfirmed) {
		t.Fatal("resolving a pending confirmation should succeed")
	}
	// Terminal states are final.
	if msg.ResolveConfirmation("c1", ConfirmationDeclined) {
		t.Error("re-resolving a terminal confirmation should fail")
	}
	if msg.ConfirmationStates["c1"] != ConfirmationConfirmed {
		t.Errorf("state = %q, want confirmed", msg.ConfirmationStates["c1"])
	}

	if len(msg.PendingConfirmations()) != 0 {
		t.Error("no confirmations should remain pending")
	}
}
