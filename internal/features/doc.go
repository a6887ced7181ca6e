// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package features implements the optional feature plugins: feedback,
// usage display, history archive, share codes, uploads and the local
// authentication guard.
//
// Each feature builds a plugin.Plugin from the platform's feature
// configuration. Apply registers and activates exactly the features the
// configuration enables; everything else stays inactive, and reapplying a
// changed configuration flips features on and off in place.
package features
