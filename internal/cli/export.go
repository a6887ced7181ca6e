// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/morganforge/kestrel-tui/internal/share"
	"github.com/morganforge/kestrel-tui/internal/storage"
	"github.com/morganforge/kestrel-tui/internal/util"
)

// HandleExport writes an archived conversation to a markdown or HTML file.
// The format follows the output file's extension.
func HandleExport(archive *storage.Archive, args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: kestrel export <key> <file.md|file.html>")
		return 2
	}
	key, outPath := args[0], args[1]

	conv, err := archive.Get(key)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	opts := share.DefaultExportOptions()
	var content string
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".md", ".markdown":
		content = share.ExportMarkdown(conv, opts)
	case ".html", ".htm":
		content = share.ExportHTML(conv, opts)
	default:
		fmt.Fprintln(os.Stderr, "error: unsupported format", filepath.Ext(outPath))
		return 2
	}

	if err := util.AtomicWriteFile(outPath, []byte(content), 0644); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	fmt.Println("exported", key, "to", outPath)
	return 0
}
