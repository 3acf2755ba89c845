// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the chat backend's Server-Sent Events feed.
//
// A Reader splits the byte stream into frames, Decode turns one frame into
// a model.Event, and Consume drives both in arrival order until the stream
// ends, the context is canceled, or a FatalError frame arrives.
//
//	err := stream.Consume(ctx, resp.Body, func(ev model.Event) error {
//	    _, err := acc.Apply(ev)
//	    return err
//	})
package stream
