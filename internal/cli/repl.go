// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/morganforge/kestrel-tui/internal/chat"
	"github.com/morganforge/kestrel-tui/internal/features"
)

// replCommands feeds liner's completer.
var replCommands = []string{"/share", "/import", "/new", "/quit"}

// HandleChat runs the line-mode REPL. It drives the same store and
// transport as the TUI, so share codes and persistence behave identically.
func HandleChat(store *chat.Store, transport chat.Transport, set *features.Set, stateDir string) int {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		var out []string
		for _, cmd := range replCommands {
			if strings.HasPrefix(cmd, prefix) {
				out = append(out, cmd)
			}
		}
		return out
	})

	historyPath := filepath.Join(stateDir, "repl_history")
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("kestrel chat (/quit to exit)")
	for {
		input, err := line.Prompt("> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return 0
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := replCommand(store, set, input); quit {
				return 0
			}
			continue
		}

		if err := sendAndWait(store, transport, input); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

// replCommand executes one slash command; returns true on /quit.
func replCommand(store *chat.Store, set *features.Set, input string) bool {
	cmd, arg, _ := strings.Cut(input, " ")
	switch cmd {
	case "/quit":
		return true

	case "/new":
		store.NewConversation()
		fmt.Println("started a new conversation")

	case "/share":
		code, err := set.Share.CreateCode()
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			break
		}
		fmt.Println(code)

	case "/import":
		ok, err := set.Share.ImportCode(strings.TrimSpace(arg))
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		} else if !ok {
			fmt.Fprintln(os.Stderr, "not a valid share code")
		} else {
			fmt.Println("conversation restored")
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown command", cmd)
	}
	return false
}

// sendAndWait sends one message and blocks until the stream settles, then
// prints the assistant's reply.
func sendAndWait(store *chat.Store, transport chat.Transport, text string) error {
	settled := make(chan struct{}, 1)
	unsubscribe := store.Subscribe(func() {
		store.Read(func(snap *chat.Snapshot) {
			if snap.Current != nil && !snap.Current.IsLoading {
				select {
				case settled <- struct{}{}:
				default:
				}
			}
		})
	})
	defer unsubscribe()

	if err := store.SendMessage(context.Background(), text, transport); err != nil {
		return err
	}

	<-settled

	// Collect the reply under the store lock, print outside it.
	var out, errOut []string
	err := chat.ErrNoConversation
	store.Read(func(snap *chat.Snapshot) {
		conv := snap.Current
		if conv == nil {
			return
		}
		msg := conv.LastMessage()
		if msg == nil {
			err = chat.ErrNoMessage
			return
		}
		err = nil

		out = append(out, msg.DisplayContent())
		for _, ref := range msg.References {
			out = append(out, fmt.Sprintf("  [%s] %s", ref.Title, ref.URL))
		}
		if msg.Error != "" {
			errOut = append(errOut, "error: "+msg.Error)
		}
		if len(conv.FollowupMessages) > 0 {
			out = append(out, "suggested: "+strings.Join(conv.FollowupMessages, " | "))
		}
	})
	if err != nil {
		return err
	}

	for _, line := range out {
		fmt.Println(line)
	}
	for _, line := range errOut {
		fmt.Fprintln(os.Stderr, line)
	}
	return nil
}
