// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package share

import (
	"bytes"
	"fmt"
	htmlpkg "html"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/morganforge/kestrel-tui/internal/model"
)

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// ExportOptions configures conversation export.
type ExportOptions struct {
	// IncludeMetadata adds a header with title and timestamps.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message timestamps.
	IncludeTimestamps bool
}

// DefaultExportOptions returns the default export configuration.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{IncludeMetadata: true, IncludeTimestamps: true}
}

var titleCaser = cases.Title(language.English)

// =============================================================================
// MARKDOWN EXPORT
// =============================================================================

// ExportMarkdown renders a conversation as a markdown document.
func ExportMarkdown(conv *model.Conversation, opts ExportOptions) string {
	var b strings.Builder

	if opts.IncludeMetadata {
		b.WriteString("# " + conv.GetTitle() + "\n\n")
		b.WriteString("> Exported " + time.Now().Format(time.RFC3339) + "\n")
		b.WriteString(fmt.Sprintf("> Messages: %d\n\n", conv.MessageCount()))
	}

	for _, msg := range conv.Messages() {
		b.WriteString("## " + titleCaser.String(msg.Role.String()))
		if opts.IncludeTimestamps {
			b.WriteString(" — " + msg.Timestamp.Format("2006-01-02 15:04:05"))
		}
		b.WriteString("\n\n")
		b.WriteString(msg.DisplayContent())
		b.WriteString("\n\n")

		if len(msg.References) > 0 {
			b.WriteString("References:\n")
			for _, ref := range msg.References {
				b.WriteString(fmt.Sprintf("- [%s](%s)\n", ref.Title, ref.URL))
			}
			b.WriteString("\n")
		}
		if msg.Error != "" {
			b.WriteString("_Generation failed: " + msg.Error + "_\n\n")
		}
	}

	return b.String()
}

// =============================================================================
// HTML EXPORT
// =============================================================================

// ExportHTML renders a conversation as a standalone HTML document with
// syntax-highlighted code blocks.
func ExportHTML(conv *model.Conversation, opts ExportOptions) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<title>" + htmlpkg.EscapeString(conv.GetTitle()) + "</title>\n")
	b.WriteString("<style>body{font-family:sans-serif;max-width:48rem;margin:2rem auto;}" +
		".msg{margin:1rem 0;padding:0.75rem;border-radius:6px;}" +
		".user{background:#eef;}.assistant{background:#efe;}.system{background:#eee;}" +
		".role{font-weight:bold;margin-bottom:0.25rem;}pre{overflow-x:auto;}</style>\n")
	b.WriteString("</head>\n<body>\n")

	if opts.IncludeMetadata {
		b.WriteString("<h1>" + htmlpkg.EscapeString(conv.GetTitle()) + "</h1>\n")
	}

	for _, msg := range conv.Messages() {
		b.WriteString(fmt.Sprintf("<div class=\"msg %s\">\n", msg.Role))
		b.WriteString("<div class=\"role\">" + titleCaser.String(msg.Role.String()))
		if opts.IncludeTimestamps {
			b.WriteString(" &middot; " + msg.Timestamp.Format("2006-01-02 15:04"))
		}
		b.WriteString("</div>\n")
		b.WriteString(renderHTMLContent(msg.DisplayContent()))
		b.WriteString("</div>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// renderHTMLContent escapes message text, highlighting fenced code blocks.
func renderHTMLContent(content string) string {
	var b strings.Builder
	segments := strings.Split(content, "```")
	for i, segment := range segments {
		if i%2 == 0 {
			b.WriteString("<p>" + htmlpkg.EscapeString(segment) + "</p>\n")
			continue
		}
		lang, code := splitFence(segment)
		b.WriteString(highlightCode(code, lang))
	}
	return b.String()
}

// splitFence separates the language hint from a fenced block's body.
func splitFence(segment string) (lang, code string) {
	if idx := strings.IndexByte(segment, '\n'); idx >= 0 {
		return strings.TrimSpace(segment[:idx]), segment[idx+1:]
	}
	return "", segment
}

// highlightCode renders one code block through chroma, falling back to an
// escaped <pre> when the lexer or formatter fails.
func highlightCode(code, lang string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "<pre>" + htmlpkg.EscapeString(code) + "</pre>\n"
	}

	formatter := html.New(html.WithClasses(false))
	var out bytes.Buffer
	if err := formatter.Format(&out, styles.Get("github"), iterator); err != nil {
		return "<pre>" + htmlpkg.EscapeString(code) + "</pre>\n"
	}
	return out.String()
}
