// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package share

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"

	"github.com/morganforge/kestrel-tui/internal/chat"
)

// Tag markers wrapping the JSON payload before compression. Decoders check
// them to reject arbitrary deflated JSON that was never a share code.
const (
	startTag = "<KSTL>"
	endTag   = "</KSTL>"
)

// maxDecodedSize bounds decompression output; a hostile share code must not
// balloon into gigabytes.
const maxDecodedSize = 16 * 1024 * 1024

// =============================================================================
// ENCODE
// =============================================================================

// Encode builds the share code for a conversation state.
//
// Order matters and is part of the wire contract: JSON, then tag wrapping,
// then UTF-8 bytes, then deflate, then base64.
func Encode(state *chat.RestoreState) (string, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return "", err
	}

	wrapped := startTag + string(payload) + endTag

	var compressed bytes.Buffer
	writer, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		return "", err
	}
	if _, err := writer.Write([]byte(wrapped)); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(compressed.Bytes()), nil
}

// =============================================================================
// DECODE
// =============================================================================

// Decode parses a share code back into a restore payload. The boolean is
// false for anything that is not a valid share code — bad base64, bad
// deflate, missing markers, malformed JSON — with no distinction between
// the failure modes; callers treat them all as "nothing to restore".
func Decode(code string) (*chat.RestoreState, bool) {
	compressed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(code))
	if err != nil {
		return nil, false
	}

	reader := flate.NewReader(bytes.NewReader(compressed))
	defer reader.Close()
	wrapped, err := io.ReadAll(io.LimitReader(reader, maxDecodedSize))
	if err != nil {
		return nil, false
	}

	text := string(wrapped)
	if !strings.HasPrefix(text, startTag) || !strings.HasSuffix(text, endTag) {
		return nil, false
	}
	payload := text[len(startTag) : len(text)-len(endTag)]

	var state chat.RestoreState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, false
	}
	if err := state.Validate(); err != nil {
		return nil, false
	}
	return &state, true
}
