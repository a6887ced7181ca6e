// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config handles local client configuration and the server-supplied
// feature configuration.
//
// Local settings load from ~/.kestrel/config.toml with environment variable
// overrides, and can be hot-reloaded through an fsnotify watcher. The
// feature configuration is fetched once at startup from the platform and
// drives which plugins activate; a feature that is absent from the payload
// or carries enabled=false leaves its plugin inactive.
package config
