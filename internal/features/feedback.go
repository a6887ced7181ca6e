// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package features

import (
	"fmt"

	"github.com/morganforge/kestrel-tui/internal/chat"
	"github.com/morganforge/kestrel-tui/internal/config"
	"github.com/morganforge/kestrel-tui/internal/model"
	"github.com/morganforge/kestrel-tui/internal/plugin"
)

// PluginFeedback is the feedback plugin's registry name.
const PluginFeedback = "feedback"

// extFeedback is the message extension key holding the user's verdict.
const extFeedback = "feedback"

// Verdict values stored in the feedback extension.
const (
	VerdictLike    = "like"
	VerdictDislike = "dislike"
)

// =============================================================================
// FEEDBACK SERVICE
// =============================================================================

// FeedbackService records per-message feedback verdicts.
type FeedbackService struct {
	store *chat.Store
	cfg   config.FeedbackConfig
}

// NewFeedbackService creates a feedback service bound to the store.
func NewFeedbackService(store *chat.Store, cfg config.FeedbackConfig) *FeedbackService {
	return &FeedbackService{store: store, cfg: cfg}
}

// Rate records a verdict on a message. The verdict lands in the message's
// extension map, so it survives persistence and share codes like any other
// extension data. Repeating the same verdict clears it.
func (f *FeedbackService) Rate(messageID, verdict string) error {
	if verdict != VerdictLike && verdict != VerdictDislike {
		return fmt.Errorf("unknown feedback verdict %q", verdict)
	}
	if verdict == VerdictLike && !f.cfg.Like.Enabled {
		return fmt.Errorf("feedback verdict %q is disabled", verdict)
	}
	if verdict == VerdictDislike && !f.cfg.Dislike.Enabled {
		return fmt.Errorf("feedback verdict %q is disabled", verdict)
	}

	current := f.Verdict(messageID)
	if current == verdict {
		verdict = ""
	}
	return f.store.MergeExtensions(messageID, map[string]any{extFeedback: verdict})
}

// Verdict returns the stored verdict for a message, or "".
func (f *FeedbackService) Verdict(messageID string) string {
	var verdict string
	f.store.Read(func(snap *chat.Snapshot) {
		if snap.Current == nil {
			return
		}
		if msg := snap.Current.Message(messageID); msg != nil {
			verdict = messageVerdict(msg)
		}
	})
	return verdict
}

// messageVerdict reads the verdict straight off a message. Slot fillers use
// this: they render under the store lock and must not call back into it.
func messageVerdict(msg *model.Message) string {
	if v, ok := msg.Extensions[extFeedback].(string); ok {
		return v
	}
	return ""
}

// =============================================================================
// FEEDBACK PLUGIN
// =============================================================================

// feedbackCondition gates the action row to finished assistant messages.
func feedbackCondition(props plugin.Props) bool {
	p, ok := props.(plugin.MessageActionsProps)
	if !ok || p.Message == nil {
		return false
	}
	return p.Message.Role == model.RoleAssistant && !p.Message.IsStreaming
}

// buildFeedbackPlugin assembles fillers for exactly the verdicts the
// platform enabled. With like on and dislike off, only the like action
// renders.
func buildFeedbackPlugin(svc *FeedbackService, cfg config.FeedbackConfig) *plugin.Plugin {
	var fillers []plugin.Filler

	if cfg.Like.Enabled {
		fillers = append(fillers, plugin.Filler{
			Slot:      plugin.SlotMessageActions,
			Name:      "feedback-like",
			Priority:  20,
			Condition: feedbackCondition,
			Render: func(props plugin.Props) (string, error) {
				p := props.(plugin.MessageActionsProps)
				if messageVerdict(p.Message) == VerdictLike {
					return "[+1]", nil
				}
				return "+1", nil
			},
		})
	}
	if cfg.Dislike.Enabled {
		fillers = append(fillers, plugin.Filler{
			Slot:      plugin.SlotMessageActions,
			Name:      "feedback-dislike",
			Priority:  10,
			Condition: feedbackCondition,
			Render: func(props plugin.Props) (string, error) {
				p := props.(plugin.MessageActionsProps)
				if messageVerdict(p.Message) == VerdictDislike {
					return "[-1]", nil
				}
				return "-1", nil
			},
		})
	}

	return &plugin.Plugin{Name: PluginFeedback, Fillers: fillers}
}
