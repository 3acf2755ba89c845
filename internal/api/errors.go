// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes the backend returns in the envelope's code field.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeConflict          = "CONFLICT_ERROR"
	CodeDuplicateDetected = "DUPLICATE_DETECTED"
	CodeInvalidFilename   = "INVALID_FILENAME"
	CodeIllegalPath       = "ILLEGAL_PATH"
)

// Error variables for common HTTP failures without a structured code.
var (
	// ErrNotFound indicates the resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the backend rejected the request's credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrServer indicates a 5xx response.
	ErrServer = errors.New("server error")
)

// =============================================================================
// API ERROR
// =============================================================================

// APIError is a failure reported by the backend, either through a
// success:false envelope or a non-2xx status.
type APIError struct {
	Status  int
	Code    string
	Message string

	// Data is the envelope's data field, when the failure carries one
	// (for example the existing document of a duplicate upload).
	Data json.RawMessage
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("api error [%s] (HTTP %d): %s", e.Code, e.Status, msg)
	}
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, msg)
}

// Is maps status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrServer:
		return e.Status >= 500
	}
	return false
}

// userMessages maps codes to display title and default message.
var userMessages = map[string][2]string{
	CodeValidation:        {"Invalid input", "Some of the values you entered are not valid. Check them and try again."},
	CodeConflict:          {"Conflict", "The change conflicts with the current state on the server. Refresh and try again."},
	CodeDuplicateDetected: {"Duplicate document", "A document with the same name or content already exists."},
	CodeInvalidFilename:   {"Invalid filename", "The filename contains characters that are not allowed."},
	CodeIllegalPath:       {"Illegal path", "The path points outside the allowed location."},
}

// UserMessage returns a title and message for display. The server's own
// message is preferred when present.
func (e *APIError) UserMessage() (title, message string) {
	if m, ok := userMessages[e.Code]; ok {
		title, message = m[0], m[1]
	} else {
		title, message = "Request failed", "The server could not complete the request."
	}
	if strings.TrimSpace(e.Message) != "" {
		message = e.Message
	}
	return title, message
}

// DecodeData unmarshals the error's data payload into v.
func (e *APIError) DecodeData(v interface{}) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return errors.New("error carries no data")
	}
	return json.Unmarshal(e.Data, v)
}

// =============================================================================
// TRANSPORT ERROR
// =============================================================================

// TransportError is a network-level failure: the request never produced a
// response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// =============================================================================
// HELPERS
// =============================================================================

// CodeOf returns the backend error code carried by err, or "".
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// IsDuplicate reports whether err is a duplicate-upload conflict.
func IsDuplicate(err error) bool {
	return CodeOf(err) == CodeDuplicateDetected
}

// IsTransport reports whether err is a network failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// handleErrorResponse converts a non-2xx response into an *APIError.
func handleErrorResponse(statusCode int, body []byte) error {
	apiErr := &APIError{Status: statusCode}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && (env.Code != "" || env.Message != "" || env.Detail != nil) {
		apiErr.Code = env.Code
		apiErr.Message = env.Message
		apiErr.Data = env.Data
		if apiErr.Message == "" {
			apiErr.Message = env.detailMessage()
		}
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
