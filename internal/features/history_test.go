// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package features

import (
	"path/filepath"
	"testing"

	"github.com/morganforge/kestrel-tui/internal/chat"
	"github.com/morganforge/kestrel-tui/internal/storage"
)

func newHistoryFixture(t *testing.T) (*chat.Store, *HistoryService) {
	t.Helper()
	archive, err := storage.OpenArchive(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { archive.Close() })
	store := chat.NewStore()
	return store, NewHistoryService(store, archive, "")
}

// =============================================================================
// HISTORY SERVICE TESTS
// =============================================================================

func TestHistoryService_ArchiveAndReopen(t *testing.T) {
	store, svc := newHistoryFixture(t)

	key, conv := store.Current()
	conv.AddUserMessage("archive this")

	if err := svc.ArchiveConversation(key); err != nil {
		t.Fatalf("archive: %v", err)
	}

	entries, err := svc.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Key != key {
		t.Fatalf("entries = %v", entries)
	}

	// Drop the live copy, then bring it back from the archive.
	if err := store.DeleteConversation(key); err != nil {
		t.Fatal(err)
	}
	currentBefore, _ := store.Current()

	if err := svc.Open(key); err != nil {
		t.Fatalf("open: %v", err)
	}
	if currentAfter, _ := store.Current(); currentAfter != currentBefore {
		t.Error("opening from the archive must not steal the selection")
	}
	reopened := store.Conversation(key)
	if reopened == nil {
		t.Fatal("reopened conversation missing from the store")
	}
	if reopened.Messages()[0].Content != "archive this" {
		t.Errorf("content = %q", reopened.Messages()[0].Content)
	}
}

func TestHistoryService_ArchiveUnknownKey(t *testing.T) {
	_, svc := newHistoryFixture(t)
	if err := svc.ArchiveConversation("nope"); err == nil {
		t.Error("archiving a missing conversation must fail")
	}
}

func TestHistoryService_SearchAndForget(t *testing.T) {
	store, svc := newHistoryFixture(t)

	key, conv := store.Current()
	conv.AddUserMessage("kestrel wing loading")
	if err := svc.ArchiveConversation(key); err != nil {
		t.Fatal(err)
	}

	entries, err := svc.Search("wing", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("search = %v", entries)
	}

	if err := svc.Forget(key); err != nil {
		t.Fatalf("forget: %v", err)
	}
	entries, _ = svc.Recent(0)
	if len(entries) != 0 {
		t.Error("forgotten conversation still listed")
	}
}

func TestHistoryService_ArchiveAllSkipsEmpty(t *testing.T) {
	store, svc := newHistoryFixture(t)

	_, conv := store.Current()
	conv.AddUserMessage("real content")
	store.MarkPersisted(mustCurrentKey(store))
	store.NewConversation() // empty, nothing to archive

	if err := svc.ArchiveAll(); err != nil {
		t.Fatalf("archive all: %v", err)
	}
	entries, err := svc.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, empty conversations must be skipped", len(entries))
	}
}

func mustCurrentKey(store *chat.Store) string {
	key, _ := store.Current()
	return key
}
