// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view.
//
// The view is a thin observer over the conversation store: every store or
// registry change arrives as a message, the view re-reads the store's
// snapshot and re-renders. All conversation mutation goes through the store;
// the view never touches conversation state directly.
package chat
