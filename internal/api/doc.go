// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the RAG backend.
//
// Most endpoints wrap their payload in an envelope:
//
//	{"success": true, "data": {...}}
//	{"success": false, "code": "DUPLICATE_DETECTED", "message": "..."}
//
// The client unwraps data into typed results and turns failures into
// *APIError, whose UserMessage maps the error code to a title and message
// fit for display. Network failures come back as *TransportError.
//
// Chat replies stream over SSE from POST /chat/stream and are decoded by
// the stream package.
package api
