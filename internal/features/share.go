// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package features

import (
	"fmt"

	"github.com/morganforge/kestrel-tui/internal/chat"
	"github.com/morganforge/kestrel-tui/internal/plugin"
	"github.com/morganforge/kestrel-tui/internal/share"
)

// PluginShare is the share plugin's registry name.
const PluginShare = "share"

// =============================================================================
// SHARE SERVICE
// =============================================================================

// ShareService turns the current conversation into a portable share code
// and restores conversations from codes produced elsewhere.
type ShareService struct {
	store *chat.Store
}

// NewShareService creates a share service bound to the store.
func NewShareService(store *chat.Store) *ShareService {
	return &ShareService{store: store}
}

// CreateCode encodes the current conversation as a share code. Encoding
// happens under the store lock so an open stream cannot mutate the history
// mid-serialization.
func (s *ShareService) CreateCode() (string, error) {
	var code string
	var err error
	s.store.Read(func(snap *chat.Snapshot) {
		conv := snap.Current
		if conv == nil {
			err = chat.ErrNoConversation
			return
		}
		if conv.IsEmpty() {
			err = fmt.Errorf("share: conversation is empty")
			return
		}

		state := &chat.RestoreState{
			History:          conv.History,
			FollowupMessages: conv.FollowupMessages,
			ChatOptions:      conv.ChatOptions,
			ServerState:      conv.ServerState,
			ConversationID:   conv.ID,
		}
		code, err = share.Encode(state)
	})
	return code, err
}

// ImportCode restores the current conversation from a share code. Returns
// false when the code is not a valid share payload; nothing changes in
// that case.
func (s *ShareService) ImportCode(code string) (bool, error) {
	state, ok := share.Decode(code)
	if !ok {
		return false, nil
	}
	if err := s.store.Restore(state); err != nil {
		return false, err
	}
	return true, nil
}

// =============================================================================
// SHARE PLUGIN
// =============================================================================

// buildSharePlugin contributes the share action to the conversation menu.
func buildSharePlugin(svc *ShareService) *plugin.Plugin {
	return &plugin.Plugin{
		Name: PluginShare,
		Fillers: []plugin.Filler{
			{
				Slot:     plugin.SlotConversationMenu,
				Name:     "share-code",
				Priority: 20,
				Render: func(plugin.Props) (string, error) {
					return "share", nil
				},
			},
		},
	}
}
