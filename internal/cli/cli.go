// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
)

// Version information, synced from main at startup.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command identifies the requested entry point.
type Command int

const (
	// CmdTUI launches the interactive terminal interface.
	CmdTUI Command = iota

	// CmdAsk streams one answer to stdout and exits.
	CmdAsk

	// CmdChat runs the line-mode REPL.
	CmdChat

	// CmdExport writes an archived conversation to a file.
	CmdExport

	// CmdVersion prints version information.
	CmdVersion

	// CmdHelp prints usage.
	CmdHelp
)

// Parse splits os.Args into a command and its arguments. No arguments
// means the TUI.
func Parse() (Command, []string) {
	args := os.Args[1:]
	if len(args) == 0 {
		return CmdTUI, nil
	}

	switch args[0] {
	case "ask":
		return CmdAsk, args[1:]
	case "chat":
		return CmdChat, args[1:]
	case "export":
		return CmdExport, args[1:]
	case "version", "-v", "--version":
		return CmdVersion, nil
	case "help", "-h", "--help":
		return CmdHelp, nil
	default:
		// Unrecognized leading words are treated as an ask prompt.
		return CmdAsk, args
	}
}

// PrintVersion writes version information to stdout.
func PrintVersion() {
	fmt.Printf("kestrel %s (%s, built %s)\n", Version, GitCommit, BuildDate)
}

// PrintUsage writes the command summary to stdout.
func PrintUsage() {
	fmt.Print(`kestrel - terminal client for the Kestrel chat platform

Usage:
  kestrel                 launch the interactive TUI
  kestrel ask <prompt>    stream one answer to stdout
  kestrel chat            line-mode REPL (for dumb terminals and pipes)
  kestrel export <key> <file.md|file.html>
                          export an archived conversation
  kestrel version         print version information

Environment:
  KESTREL_ENDPOINT        API base URL
  KESTREL_API_KEY         API key
  KESTREL_STATE_DIR       local state directory
`)
}
