// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package features

import (
	"testing"

	"github.com/morganforge/kestrel-tui/internal/chat"
)

// =============================================================================
// SHARE SERVICE TESTS
// =============================================================================

func TestShareService_RoundTripAcrossStores(t *testing.T) {
	source := chat.NewStore()
	_, conv := source.Current()
	conv.AddUserMessage("how do kestrels hover?")
	reply := conv.AddAssistantMessage()
	reply.AppendContent("into the wind")
	reply.FinalizeStream()
	source.SetChatOption("model", "large")

	code, err := NewShareService(source).CreateCode()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Import into a completely separate client.
	target := chat.NewStore()
	ok, err := NewShareService(target).ImportCode(code)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !ok {
		t.Fatal("import rejected a valid code")
	}

	_, imported := target.Current()
	if imported.MessageCount() != 2 {
		t.Errorf("messages = %d, want 2", imported.MessageCount())
	}
	if imported.GetTitle() != "how do kestrels hover?" {
		t.Errorf("title = %q", imported.GetTitle())
	}
	if imported.ChatOptions["model"] != "large" {
		t.Errorf("options = %v", imported.ChatOptions)
	}
}

func TestShareService_EmptyConversationHasNothingToShare(t *testing.T) {
	store := chat.NewStore()
	if _, err := NewShareService(store).CreateCode(); err == nil {
		t.Error("sharing an empty conversation must fail")
	}
}

func TestShareService_InvalidCodeChangesNothing(t *testing.T) {
	store := chat.NewStore()
	_, conv := store.Current()
	conv.AddUserMessage("keep me")

	ok, err := NewShareService(store).ImportCode("definitely not a share code")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if ok {
		t.Error("garbage must not import")
	}
	if _, current := store.Current(); current.MessageCount() != 1 {
		t.Error("a failed import must leave the conversation untouched")
	}
}
