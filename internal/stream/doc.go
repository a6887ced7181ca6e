// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream defines the typed server event union and the reconciler
// that applies a stream of events onto one in-progress assistant message.
//
// Events for one message are applied strictly in arrival order. Consecutive
// text chunks are coalesced into the message's pending content buffer for
// rendering efficiency; order is preserved. Unknown event kinds are ignored
// so that newer servers can add kinds without breaking older clients.
package stream
