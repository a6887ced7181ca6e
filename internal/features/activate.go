// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package features

import (
	"github.com/morganforge/kestrel-tui/internal/chat"
	"github.com/morganforge/kestrel-tui/internal/config"
	"github.com/morganforge/kestrel-tui/internal/plugin"
	"github.com/morganforge/kestrel-tui/internal/storage"
)

// =============================================================================
// FEATURE SET
// =============================================================================

// Set bundles every feature service built from one feature configuration.
// Services for disabled features are still constructed so callers never
// nil-check; their plugins simply stay inactive.
type Set struct {
	Feedback    *FeedbackService
	Usage       *UsageService
	History     *HistoryService
	Share       *ShareService
	Upload      *UploadService
	ChatOptions *ChatOptionsService
	Auth        *AuthGuard
}

// NewSet builds the feature services. archive may be nil when the history
// feature is disabled; the history service is then omitted.
func NewSet(store *chat.Store, archive *storage.Archive, fc *config.FeatureConfig) *Set {
	s := &Set{
		Feedback:    NewFeedbackService(store, fc.Feedback),
		Usage:       NewUsageService(store),
		Share:       NewShareService(store),
		Upload:      NewUploadService(fc.Upload),
		ChatOptions: NewChatOptionsService(store, fc.ChatOptions),
		Auth:        NewAuthGuard(fc.Auth),
	}
	if archive != nil {
		s.History = NewHistoryService(store, archive, "")
	}
	return s
}

// Apply registers each feature plugin and activates exactly those the
// platform enabled. Calling Apply again with a changed configuration flips
// features on and off in place: Register replaces the definition, then the
// toggle decides between Activate and Deactivate.
func Apply(reg *plugin.Registry, set *Set, fc *config.FeatureConfig) {
	toggle := func(name string, p *plugin.Plugin, enabled bool) {
		reg.Register(p)
		if enabled {
			reg.Activate(name)
		} else {
			reg.Deactivate(name)
		}
	}

	toggle(PluginFeedback, buildFeedbackPlugin(set.Feedback, fc.Feedback), fc.Feedback.Active())
	toggle(PluginUsage, buildUsagePlugin(set.Usage), fc.Usage.Enabled)
	toggle(PluginShare, buildSharePlugin(set.Share), fc.Share.Enabled)
	toggle(PluginUpload, buildUploadPlugin(set.Upload), fc.Upload.Enabled)
	toggle(PluginChatOptions, buildChatOptionsPlugin(set.ChatOptions), fc.ChatOptions.Enabled)
	toggle(PluginAuth, buildAuthPlugin(set.Auth), fc.Auth.Enabled)

	if set.History != nil {
		toggle(PluginHistory, buildHistoryPlugin(set.History), fc.History.Enabled)
	}
}
