// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence.
//
// Two stores live here:
//
//   - SnapshotStore writes the whole conversations map as one JSON record
//     per namespace (the base key plus an optional per-user suffix) and
//     rehydrates it on startup, repairing state an interrupted stream left
//     behind. Switching the namespace never destroys records written under
//     other namespaces.
//   - Archive is the SQLite-backed long-term conversation history that the
//     history feature browses and searches.
package storage
