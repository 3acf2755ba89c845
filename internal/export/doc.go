// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat threads to files.
//
// # Supported Formats
//
//   - JSON: the transcript as stored, for re-import or scripting
//   - YAML: the same structure, easier to diff by hand
//   - Markdown: readable, with sources as a numbered reference list
//
// # Usage
//
//	exp, err := export.ForFormat("md", export.DefaultOptions())
//	path, err := export.ExportToFile(transcript, exp, ".")
package export
