// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI entry points: argument parsing, the
// one-shot ask command, the line-mode REPL for dumb terminals and pipes,
// and conversation export.
package cli
