// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package share implements cross-device conversation transfer and local
// conversation export.
//
// A share code is built by wrapping the conversation-state JSON in literal
// tag markers, deflate-compressing the UTF-8 bytes and base64-encoding the
// result. Decoding reverses the steps and validates both the markers and
// the JSON shape before anything reaches the store; any failure simply
// means "not a share payload" and is never surfaced as a user-facing error.
package share
