// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the client session: dirty-state for autosave,
// activity for the idle lock, and the periodic tick that drives both.
//
// The manager never persists anything itself. The autosave callback is
// supplied by the caller and typically snapshots the conversation store;
// the idle-lock callback re-prompts for authentication when the platform's
// feature configuration asks for it.
package session
