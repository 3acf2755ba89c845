// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the ragterm command tree on cobra.
//
// Every command receives an *App holding the loaded configuration, the API
// client and the client state store. Streams are injectable, so tests drive
// commands against a fake backend with Run and byte buffers.
//
// # Commands
//
// Chat:
//   - ask: one question with a streamed, cited answer
//   - chat: line-oriented REPL with slash commands
//   - tui: full-screen interface
//
// Content:
//   - docs: list, upload (with duplicate handling), show, delete, watch
//   - workspaces, threads, search
//
// Backend:
//   - settings, tools, tasks, metrics, status
//
// Local:
//   - config
//
// # Output
//
// With --json, commands write one envelope {"success", "command", "data"}
// (or "error") instead of human text. Exit codes: 0 success, 1 general
// failure, 2 usage error, 3 network failure, 4 configuration error, 130
// interrupted.
package cli
