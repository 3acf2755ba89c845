// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the single object a command prints under --json:
//
//	{"success": true, "data": {...}, "error": null, "timestamp": "...", "command": "docs list"}
//
// Error holds the same title and detail a human would see. Code carries the
// backend error code when the failure came from the API.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Code      string  `json:"code,omitempty"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

func envelope(command string) *JSONResponse {
	return &JSONResponse{Command: command, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// NewJSONResponse wraps data in a successful envelope.
func NewJSONResponse(command string, data any) *JSONResponse {
	r := envelope(command)
	r.Success, r.Data = true, data
	return r
}

// NewJSONErrorResponse wraps err in a failed envelope.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg, detail := FormatError(err)
	if detail != "" {
		msg += ": " + detail
	}
	r := envelope(command)
	r.Error, r.Code = &msg, errorCode(err)
	return r
}

// Write prints r indented.
func (r *JSONResponse) Write(w io.Writer) error { return r.encode(w, "  ") }

// WriteCompact prints r on one line, for commands that emit a stream of
// envelopes such as docs watch and tasks watch.
func (r *JSONResponse) WriteCompact(w io.Writer) error { return r.encode(w, "") }

func (r *JSONResponse) encode(w io.Writer, indent string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	return enc.Encode(r)
}
