// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud implements the Kestrel platform API client.
//
// It covers the three server surfaces the client needs:
//
//   - the streaming chat endpoint, consumed through OpenStream with
//     per-event callbacks and a cancellation handle
//   - the startup configuration endpoint describing which optional
//     features are enabled
//   - the silent tool-confirmation endpoint
//
// Streaming uses server-sent events. Non-streaming requests are retried
// with exponential backoff; all requests pass a client-side rate limiter.
package cloud
