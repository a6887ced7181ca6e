// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package share

import (
	"strings"
	"testing"

	"github.com/morganforge/kestrel-tui/internal/model"
)

func exportFixture() *model.Conversation {
	conv := model.NewConversation()
	conv.AddUserMessage("show me a loop")
	reply := conv.AddAssistantMessage()
	reply.AppendContent("Sure:\n```go\nfor i := 0; i < 3; i++ {\n}\n```\ndone")
	reply.FinalizeStream()
	reply.References = []model.Reference{{Title: "Go spec", URL: "https://go.dev/ref/spec"}}
	return conv
}

// =============================================================================
// MARKDOWN EXPORT TESTS
// =============================================================================

func TestExportMarkdown(t *testing.T) {
	out := ExportMarkdown(exportFixture(), DefaultExportOptions())

	for _, want := range []string{
		"# show me a loop",
		"## User",
		"## Assistant",
		"```go",
		"- [Go spec](https://go.dev/ref/spec)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestExportMarkdown_WithoutMetadata(t *testing.T) {
	out := ExportMarkdown(exportFixture(), ExportOptions{})
	if strings.Contains(out, "# show me a loop") {
		t.Error("metadata header present despite being disabled")
	}
	if strings.Contains(out, " — ") {
		t.Error("timestamps present despite being disabled")
	}
}

// =============================================================================
// HTML EXPORT TESTS
// =============================================================================

func TestExportHTML(t *testing.T) {
	conv := exportFixture()
	conv.AddUserMessage("<script>alert(1)</script>")

	out := ExportHTML(conv, DefaultExportOptions())

	if !strings.Contains(out, "<!DOCTYPE html>") {
		t.Error("not a standalone document")
	}
	if !strings.Contains(out, "&lt;script&gt;") || strings.Contains(out, "<script>alert") {
		t.Error("message content not escaped")
	}
	// Fenced code went through the highlighter, not a bare <p>.
	if !strings.Contains(out, "<pre") {
		t.Error("code block not rendered as preformatted")
	}
	if !strings.Contains(out, `class="msg user"`) || !strings.Contains(out, `class="msg assistant"`) {
		t.Error("role styling classes missing")
	}
}
