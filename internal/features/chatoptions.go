// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package features

import (
	"fmt"
	"strings"

	"github.com/morganforge/kestrel-tui/internal/chat"
	"github.com/morganforge/kestrel-tui/internal/config"
	"github.com/morganforge/kestrel-tui/internal/model"
	"github.com/morganforge/kestrel-tui/internal/plugin"
)

// PluginChatOptions is the chat options plugin's registry name.
const PluginChatOptions = "chat-options"

// =============================================================================
// CHAT OPTIONS SERVICE
// =============================================================================

// ChatOptionsService exposes the server-defined request options and writes
// the user's picks onto the current conversation.
type ChatOptionsService struct {
	store   *chat.Store
	options []config.ChatOption
}

// NewChatOptionsService creates the service with the platform's option
// schema.
func NewChatOptionsService(store *chat.Store, cfg config.ChatOptionsConfig) *ChatOptionsService {
	return &ChatOptionsService{store: store, options: cfg.Options}
}

// Options returns the schema of available options.
func (c *ChatOptionsService) Options() []config.ChatOption {
	return c.options
}

// Set validates a value against the option schema and stores it on the
// current conversation.
func (c *ChatOptionsService) Set(key, value string) error {
	opt := c.find(key)
	if opt == nil {
		return fmt.Errorf("unknown chat option %q", key)
	}
	if opt.Kind == "select" && !contains(opt.Values, value) {
		return fmt.Errorf("chat option %q does not accept %q", key, value)
	}
	return c.store.SetChatOption(key, value)
}

// Clear removes an option from the current conversation, reverting to the
// server default.
func (c *ChatOptionsService) Clear(key string) error {
	return c.store.SetChatOption(key, nil)
}

// Current returns the effective value for an option on the current
// conversation, falling back to the schema default.
func (c *ChatOptionsService) Current(key string) string {
	var value string
	c.store.Read(func(snap *chat.Snapshot) {
		value = c.ValueFor(snap.Current, key)
	})
	return value
}

// ValueFor returns the effective value for an option on the given
// conversation. Slot fillers use this form; they already hold the store
// lock through their caller.
func (c *ChatOptionsService) ValueFor(conv *model.Conversation, key string) string {
	opt := c.find(key)
	if opt == nil {
		return ""
	}
	if conv != nil {
		if v, ok := conv.ChatOptions[key].(string); ok {
			return v
		}
	}
	return opt.Default
}

func (c *ChatOptionsService) find(key string) *config.ChatOption {
	for i := range c.options {
		if c.options[i].Key == key {
			return &c.options[i]
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// =============================================================================
// CHAT OPTIONS PLUGIN
// =============================================================================

// buildChatOptionsPlugin shows the non-default picks beside the composer.
func buildChatOptionsPlugin(svc *ChatOptionsService) *plugin.Plugin {
	return &plugin.Plugin{
		Name: PluginChatOptions,
		Fillers: []plugin.Filler{
			{
				Slot:     plugin.SlotComposerAccessory,
				Name:     "chat-options-summary",
				Priority: 20,
				Render: func(props plugin.Props) (string, error) {
					p := props.(plugin.ComposerAccessoryProps)
					var parts []string
					for _, opt := range svc.Options() {
						if v := svc.ValueFor(p.Conversation, opt.Key); v != "" && v != opt.Default {
							parts = append(parts, opt.Label+"="+v)
						}
					}
					return strings.Join(parts, " "), nil
				},
			},
		},
	}
}
