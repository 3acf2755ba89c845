// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads ragterm settings from ~/.ragterm/config.toml.
//
// Values are layered: built-in Default, then the TOML file, then RAGTERM_*
// variables (.env files in the working directory and ~/.ragterm are read
// but never override the real environment). Command-line flags are applied last by
// the cli package through ResolveBaseURL and friends. Save writes only the
// file layer, so environment overrides are never persisted.
//
// Keys are addressed by dotted TOML path ("api.url", "ui.theme") in Get and
// Set; GetAllKeys lists them.
package config
