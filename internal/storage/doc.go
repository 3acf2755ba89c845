// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key/value backends behind the
// client state store.
//
// SQLiteKV keeps everything in one table of a pure-Go SQLite database at
// ~/.ragterm/state.db. MemoryKV is a map for tests and --ephemeral runs.
package storage
