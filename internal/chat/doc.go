// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the conversation store.
//
// The store owns every conversation, the current-conversation selection and
// all mutating operations. Stream events mutate state only through the
// reconciler a SendMessage call installs, and the cancel-before-start
// discipline guarantees at most one in-flight stream per conversation.
//
// The store is a reactive external store: consumers subscribe for change
// notification and read immutable-by-convention snapshots that stay
// referentially stable while nothing changes.
package chat
