// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package features

import (
	"fmt"
	"sort"
	"strings"

	"github.com/morganforge/kestrel-tui/internal/chat"
	"github.com/morganforge/kestrel-tui/internal/model"
	"github.com/morganforge/kestrel-tui/internal/plugin"
)

// PluginUsage is the usage plugin's registry name.
const PluginUsage = "usage"

// =============================================================================
// USAGE SERVICE
// =============================================================================

// UsageService aggregates token usage across a conversation.
type UsageService struct {
	store *chat.Store
}

// NewUsageService creates a usage service bound to the store.
func NewUsageService(store *chat.Store) *UsageService {
	return &UsageService{store: store}
}

// ConversationTotals sums usage over every message in the conversation,
// keyed by model.
func (u *UsageService) ConversationTotals(conv *model.Conversation) map[string]model.Usage {
	totals := make(map[string]model.Usage)
	for _, msg := range conv.Messages() {
		for modelID, usage := range msg.Usage {
			t := totals[modelID]
			t.Add(usage)
			totals[modelID] = t
		}
	}
	return totals
}

// CurrentSummary renders a one-line usage summary for the selected
// conversation, or "" when nothing has been spent yet.
func (u *UsageService) CurrentSummary() string {
	var summary string
	u.store.Read(func(snap *chat.Snapshot) {
		summary = u.SummaryFor(snap.Current)
	})
	return summary
}

// SummaryFor renders the one-line usage summary for a conversation. The
// caller is responsible for holding the store lock when conv may have an
// open stream.
func (u *UsageService) SummaryFor(conv *model.Conversation) string {
	if conv == nil {
		return ""
	}
	totals := u.ConversationTotals(conv)
	if len(totals) == 0 {
		return ""
	}

	models := make([]string, 0, len(totals))
	for modelID := range totals {
		models = append(models, modelID)
	}
	sort.Strings(models)

	var parts []string
	var cost float64
	for _, modelID := range models {
		t := totals[modelID]
		parts = append(parts, fmt.Sprintf("%s %d/%d", modelID, t.InputTokens, t.OutputTokens))
		cost += t.Cost
	}

	summary := strings.Join(parts, " ")
	if cost > 0 {
		summary += fmt.Sprintf(" $%.4f", cost)
	}
	return summary
}

// =============================================================================
// USAGE PLUGIN
// =============================================================================

// buildUsagePlugin contributes the usage summary to the status bar.
func buildUsagePlugin(svc *UsageService) *plugin.Plugin {
	return &plugin.Plugin{
		Name: PluginUsage,
		Fillers: []plugin.Filler{
			{
				Slot:     plugin.SlotStatusBar,
				Name:     "usage-summary",
				Priority: 10,
				Render: func(props plugin.Props) (string, error) {
					p := props.(plugin.StatusBarProps)
					return svc.SummaryFor(p.Conversation), nil
				},
			},
		},
	}
}
