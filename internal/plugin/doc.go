// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package plugin implements the runtime feature registry and the slot
// rendering primitive.
//
// A plugin is registered inactive, then activated or deactivated based on
// the server-supplied feature configuration. Activation inserts the
// plugin's slot fillers into a priority-sorted index; deactivation removes
// exactly that plugin's fillers. Consumers subscribe for change
// notification and read per-slot filler lists that stay referentially
// stable while nothing changes.
//
// The registry is an explicitly constructed component handed to the parts
// that need it; there is no package-level singleton, so independent app
// instances (and tests) cannot leak state into each other.
package plugin
