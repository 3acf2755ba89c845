// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/jeranaias/ragterm/internal/model"
)

// Handler receives each decoded event. Returning an error aborts the stream.
type Handler func(ev model.Event) error

// Consume reads and decodes frames from r strictly in arrival order, calling
// fn for each event.
//
// It returns nil when the stream ends cleanly (EOF or a [DONE] frame), the
// context error on cancellation, and otherwise the first decode, fatal or
// handler error.
func Consume(ctx context.Context, r io.Reader, fn Handler) error {
	reader := NewReader(r)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			// A canceled request surfaces as a read error on the body
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}

		ev, err := decodeFrame(raw)
		if errors.Is(err, errDone) {
			return nil
		}
		if err != nil {
			return err
		}
		if ev == nil {
			continue
		}

		if err := fn(ev); err != nil {
			return err
		}
	}
}

// decodeFrame returns a nil event for frames that carry no payload.
func decodeFrame(raw RawEvent) (model.Event, error) {
	if raw.Name == FatalEventName {
		return Decode(raw)
	}
	data := bytes.TrimSpace(raw.Data)
	switch {
	case len(data) == 0:
		return nil, nil
	case bytes.Equal(data, doneMarker):
		return nil, errDone
	}
	return Decode(raw)
}
