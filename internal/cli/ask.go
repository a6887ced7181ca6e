// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/morganforge/kestrel-tui/internal/cloud"
	"github.com/morganforge/kestrel-tui/internal/stream"
)

// HandleAsk streams one answer to stdout and exits. No conversation state
// is kept; this is the pipe-friendly path.
func HandleAsk(client *cloud.Client, args []string) int {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		fmt.Fprintln(os.Stderr, "usage: kestrel ask <prompt>")
		return 2
	}

	done := make(chan error, 1)
	cb := cloud.Callbacks{
		OnMessage: func(ev stream.Event) {
			switch ev.Type {
			case stream.EventText:
				var chunk string
				if json.Unmarshal(ev.Content, &chunk) == nil {
					fmt.Print(chunk)
				}
			case stream.EventError:
				var payload stream.ErrorPayload
				if json.Unmarshal(ev.Content, &payload) == nil {
					fmt.Fprintln(os.Stderr, "error:", payload.Message)
				}
			}
		},
		OnError: func(err error) {
			fmt.Fprintln(os.Stderr, "error:", err)
		},
		OnClose: func() {
			done <- nil
		},
	}

	req := &cloud.ChatRequest{Message: prompt}
	cancel, err := client.OpenStream(context.Background(), req, cb)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer cancel()

	<-done
	fmt.Println()
	return 0
}
