// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package plugin

import (
	"log"

	"github.com/morganforge/kestrel-tui/internal/model"
)

// =============================================================================
// SLOT PROPS
// =============================================================================

// MessageActionsProps is the payload for SlotMessageActions fillers.
type MessageActionsProps struct {
	ConversationKey string
	Message         *model.Message
}

// Slot implements Props.
func (MessageActionsProps) Slot() SlotName { return SlotMessageActions }

// ComposerAccessoryProps is the payload for SlotComposerAccessory fillers.
type ComposerAccessoryProps struct {
	ConversationKey string
	IsLoading       bool
	Conversation    *model.Conversation
}

// Slot implements Props.
func (ComposerAccessoryProps) Slot() SlotName { return SlotComposerAccessory }

// HeaderProps is the payload for SlotHeader fillers.
type HeaderProps struct {
	ConversationTitle string
	UserID            string
}

// Slot implements Props.
func (HeaderProps) Slot() SlotName { return SlotHeader }

// StatusBarProps is the payload for SlotStatusBar fillers.
type StatusBarProps struct {
	ConversationKey string
	MessageCount    int
	IsLoading       bool
	Conversation    *model.Conversation
}

// Slot implements Props.
func (StatusBarProps) Slot() SlotName { return SlotStatusBar }

// ConversationMenuProps is the payload for SlotConversationMenu fillers.
type ConversationMenuProps struct {
	ConversationKey string
}

// Slot implements Props.
func (ConversationMenuProps) Slot() SlotName { return SlotConversationMenu }

// =============================================================================
// SLOT RENDERING
// =============================================================================

// RenderSlot resolves the active fillers for the props' slot, filters out
// fillers whose condition rejects the payload, and renders the remainder in
// priority order. Each filler renders in isolation: one filler's failure
// (error or panic) never suppresses its siblings' output.
func RenderSlot(r *Registry, props Props) []string {
	fillers := r.SlotFillers(props.Slot())
	if len(fillers) == 0 {
		return nil
	}

	fragments := make([]string, 0, len(fillers))
	for _, filler := range fillers {
		if filler.Condition != nil && !filler.Condition(props) {
			continue
		}
		if fragment, ok := renderFiller(filler, props); ok && fragment != "" {
			fragments = append(fragments, fragment)
		}
	}
	return fragments
}

// renderFiller invokes one filler with panic containment.
func renderFiller(filler Filler, props Props) (fragment string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("plugin %s: filler %s panicked rendering %s: %v",
				filler.owner, filler.Name, props.Slot(), rec)
			ok = false
		}
	}()

	if filler.Render == nil {
		return "", false
	}
	fragment, err := filler.Render(props)
	if err != nil {
		log.Printf("plugin %s: filler %s failed rendering %s: %v",
			filler.owner, filler.Name, props.Slot(), err)
		return "", false
	}
	return fragment, true
}
