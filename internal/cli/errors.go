// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error surfacing and exit codes for ragterm commands.
//
// Commands always return errors. Execute turns the returned error into one
// line for the user and an exit code:
//   - transport failures print "Could not reach the server" (exit 3)
//   - backend failures print the mapped title and message (exit 1)
//   - an aborted stream prints "Connection lost" (exit 1)
//   - bad arguments print the reason and an example (exit 2)

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/ragterm/internal/api"
	"github.com/jeranaias/ragterm/internal/chat"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError covers backend failures and everything unclassified
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 3
	// ExitConfigError indicates a bad configuration file or environment
	ExitConfigError = 4
	// ExitCanceled indicates the user interrupted the command
	ExitCanceled = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a command failure with context.
type CommandError struct {
	Command string // e.g. "docs upload"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Command, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError is bad user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// ConfigError wraps a failure to load or validate configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// errCanceled is returned when the user declines or interrupts an action.
var errCanceled = errors.New("canceled")

// reportedError marks an error the command already showed to the user.
// Run keeps its exit code but prints nothing more.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// NewValidationError creates a validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason, Example: example}
}

// ErrMissingArgument creates an error for a missing required argument.
func ErrMissingArgument(argName, usage string) error {
	return NewValidationErrorWithExample(argName, "", "required argument missing", usage)
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// ExitCodeFor maps an error to the process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var configErr *ConfigError
	switch {
	case errors.Is(err, errCanceled), errors.Is(err, context.Canceled):
		return ExitCanceled
	case errors.As(err, &validationErr):
		return ExitUsageError
	case errors.As(err, &configErr):
		return ExitConfigError
	case api.IsTransport(err):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}

// FormatError returns the title and detail shown for err.
func FormatError(err error) (title, detail string) {
	var apiErr *api.APIError
	var turnErr *chat.TurnError

	switch {
	case errors.As(err, &turnErr) && turnErr.IsFatal():
		return "Connection lost", "The server ended the reply early. Partial output was kept."
	case api.IsTransport(err):
		return "Could not reach the server", "Check that the backend is running and --api-url is correct."
	case errors.As(err, &apiErr):
		return apiErr.UserMessage()
	case errors.Is(err, errCanceled), errors.Is(err, context.Canceled):
		return "Canceled", ""
	default:
		return "Error", err.Error()
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err in a consistent format. In JSON mode it writes the
// error envelope to out; otherwise a styled line to errOut.
func DisplayError(out, errOut io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}

	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Write(out)
		return
	}

	title, detail := FormatError(err)
	if detail == "" {
		fmt.Fprintf(errOut, "%s %s\n", ErrorStyle.Render("[ERROR]"), title)
		return
	}
	fmt.Fprintf(errOut, "%s %s: %s\n", ErrorStyle.Render("[ERROR]"), title, detail)
}

// errorCode is the code reported in JSON error envelopes.
func errorCode(err error) string {
	var turnErr *chat.TurnError
	switch {
	case errors.As(err, &turnErr) && turnErr.IsFatal():
		return "STREAM_FATAL"
	case api.IsTransport(err):
		return "TRANSPORT_ERROR"
	}
	return api.CodeOf(err)
}
