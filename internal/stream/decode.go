// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jeranaias/ragterm/internal/model"
)

// FatalEventName is the SSE event name that aborts a stream.
const FatalEventName = "FatalError"

// doneMarker is sent by some backends as the last data frame.
var doneMarker = []byte("[DONE]")

// =============================================================================
// ERRORS
// =============================================================================

// ErrUnknownEvent is returned when a payload carries an unrecognized type.
var ErrUnknownEvent = errors.New("unknown stream event type")

// errDone signals the [DONE] marker to Consume.
var errDone = errors.New("stream done")

// FatalError is the backend's unrecoverable stream failure.
type FatalError struct {
	Message string
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	if e.Message != "" {
		return "fatal stream error: " + e.Message
	}
	return "fatal stream error"
}

// DecodeError reports a frame whose payload could not be parsed.
type DecodeError struct {
	Name string
	Data []byte
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q event: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// =============================================================================
// DECODING
// =============================================================================

// payload is the union of all event payload shapes on the wire.
type payload struct {
	Type    model.EventKind `json:"type"`
	Delta   string          `json:"delta"`
	Steps   []string        `json:"steps"`
	Tool    string          `json:"tool"`
	Sources []model.Source  `json:"sources"`
}

// Decode turns one frame into exactly one event.
//
// A FatalError frame returns *FatalError regardless of its payload.
// Malformed JSON returns *DecodeError and is never skipped.
func Decode(raw RawEvent) (model.Event, error) {
	if raw.Name == FatalEventName {
		return nil, decodeFatal(raw.Data)
	}

	var p payload
	if err := json.Unmarshal(raw.Data, &p); err != nil {
		return nil, &DecodeError{Name: raw.Name, Data: raw.Data, Err: err}
	}

	switch p.Type {
	case model.KindContent:
		return model.ContentEvent{Delta: p.Delta}, nil
	case model.KindReasoning:
		return model.ReasoningEvent{Steps: p.Steps}, nil
	case model.KindToolStart:
		return model.ToolStartEvent{Tool: p.Tool}, nil
	case model.KindSources:
		return model.SourcesEvent{Sources: p.Sources}, nil
	default:
		return nil, &DecodeError{
			Name: raw.Name,
			Data: raw.Data,
			Err:  fmt.Errorf("%w: %q", ErrUnknownEvent, p.Type),
		}
	}
}

// decodeFatal extracts a message from whatever the fatal payload holds.
func decodeFatal(data []byte) *FatalError {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &FatalError{}
	}

	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.Message != "" {
			return &FatalError{Message: obj.Message}
		}
		return &FatalError{Message: obj.Error}
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		return &FatalError{Message: str}
	}
	return &FatalError{Message: string(data)}
}
