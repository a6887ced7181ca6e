// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package features

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/morganforge/kestrel-tui/internal/config"
	"github.com/morganforge/kestrel-tui/internal/plugin"
)

// PluginUpload is the upload plugin's registry name.
const PluginUpload = "upload"

// =============================================================================
// UPLOAD SERVICE
// =============================================================================

// UploadService validates attachments against the platform's limits before
// anything leaves the machine.
type UploadService struct {
	cfg config.UploadConfig
}

// NewUploadService creates an upload service with the platform's limits.
func NewUploadService(cfg config.UploadConfig) *UploadService {
	return &UploadService{cfg: cfg}
}

// Validate checks a local file against the size and type limits.
func (u *UploadService) Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("upload: %s is a directory", path)
	}
	if u.cfg.MaxBytes > 0 && info.Size() > u.cfg.MaxBytes {
		return fmt.Errorf("upload: %s exceeds the %d byte limit", path, u.cfg.MaxBytes)
	}

	if len(u.cfg.MimeTypes) > 0 {
		mimeType := mime.TypeByExtension(filepath.Ext(path))
		if !u.mimeAllowed(mimeType) {
			return fmt.Errorf("upload: type %q not accepted", mimeType)
		}
	}
	return nil
}

// mimeAllowed matches a detected type against the allow list. Entries like
// "image/*" match the whole top-level type.
func (u *UploadService) mimeAllowed(mimeType string) bool {
	if mimeType == "" {
		return false
	}
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}
	for _, allowed := range u.cfg.MimeTypes {
		if allowed == base {
			return true
		}
		if strings.HasSuffix(allowed, "/*") &&
			strings.HasPrefix(base, strings.TrimSuffix(allowed, "*")) {
			return true
		}
	}
	return false
}

// =============================================================================
// UPLOAD PLUGIN
// =============================================================================

// buildUploadPlugin contributes the attach hint to the composer.
func buildUploadPlugin(svc *UploadService) *plugin.Plugin {
	return &plugin.Plugin{
		Name: PluginUpload,
		Fillers: []plugin.Filler{
			{
				Slot:     plugin.SlotComposerAccessory,
				Name:     "upload-attach",
				Priority: 10,
				Condition: func(props plugin.Props) bool {
					p, ok := props.(plugin.ComposerAccessoryProps)
					return ok && !p.IsLoading
				},
				Render: func(plugin.Props) (string, error) {
					return "attach", nil
				},
			},
		},
	}
}
