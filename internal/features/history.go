// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package features

import (
	"fmt"

	"github.com/morganforge/kestrel-tui/internal/chat"
	"github.com/morganforge/kestrel-tui/internal/model"
	"github.com/morganforge/kestrel-tui/internal/plugin"
	"github.com/morganforge/kestrel-tui/internal/storage"
)

// PluginHistory is the history plugin's registry name.
const PluginHistory = "history"

// =============================================================================
// HISTORY SERVICE
// =============================================================================

// HistoryService moves conversations between the live store and the
// long-term archive.
type HistoryService struct {
	store     *chat.Store
	archive   *storage.Archive
	namespace string
}

// NewHistoryService creates a history service. namespace scopes archive
// rows to the signed-in user; "" means the anonymous namespace.
func NewHistoryService(store *chat.Store, archive *storage.Archive, namespace string) *HistoryService {
	return &HistoryService{store: store, archive: archive, namespace: namespace}
}

// SetNamespace switches the archive namespace on sign-in or sign-out.
func (h *HistoryService) SetNamespace(namespace string) {
	h.namespace = namespace
}

// ArchiveConversation copies a live conversation into the archive. The
// write runs under the store lock so a streaming conversation serializes as
// one consistent state.
func (h *HistoryService) ArchiveConversation(key string) error {
	found := false
	var err error
	h.store.Read(func(snap *chat.Snapshot) {
		for i, k := range snap.Keys {
			if k == key {
				found = true
				err = h.archive.Put(h.namespace, key, snap.Conversations[i])
				return
			}
		}
	})
	if !found {
		return fmt.Errorf("archive: %w", chat.ErrNoConversation)
	}
	return err
}

// ArchiveAll archives every persistable conversation in the store.
func (h *HistoryService) ArchiveAll() error {
	var err error
	h.store.Read(func(snap *chat.Snapshot) {
		for i, key := range snap.Keys {
			conv := snap.Conversations[i]
			if conv.IsEmpty() {
				continue
			}
			if err = h.archive.Put(h.namespace, key, conv); err != nil {
				return
			}
		}
	})
	return err
}

// Recent lists the newest archived conversations.
func (h *HistoryService) Recent(limit int) ([]storage.ArchiveEntry, error) {
	return h.archive.List(h.namespace, limit)
}

// Search finds archived conversations matching the query text.
func (h *HistoryService) Search(query string, limit int) ([]storage.ArchiveEntry, error) {
	return h.archive.Search(h.namespace, query, limit)
}

// Open loads an archived conversation back into the store. The restored
// conversation joins the list without stealing the current selection.
func (h *HistoryService) Open(key string) error {
	conv, err := h.archive.Get(key)
	if err != nil {
		return err
	}
	h.store.AdoptConversations(map[string]*model.Conversation{key: conv})
	return nil
}

// Forget removes an archived conversation permanently.
func (h *HistoryService) Forget(key string) error {
	return h.archive.Delete(key)
}

// =============================================================================
// HISTORY PLUGIN
// =============================================================================

// buildHistoryPlugin contributes the archive action to the conversation
// menu.
func buildHistoryPlugin(svc *HistoryService) *plugin.Plugin {
	return &plugin.Plugin{
		Name: PluginHistory,
		Fillers: []plugin.Filler{
			{
				Slot:     plugin.SlotConversationMenu,
				Name:     "history-archive",
				Priority: 10,
				Render: func(props plugin.Props) (string, error) {
					return "archive", nil
				},
			},
		},
	}
}
