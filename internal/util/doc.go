// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the CLI and the TUI.
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// Display:
//   - Truncate: cell-width truncation with an ellipsis
//   - Bytes, Ago: human-readable sizes and relative times
package util
