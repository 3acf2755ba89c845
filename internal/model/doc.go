// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the chat domain types shared by the stream decoder,
// the chat session and the rendering layers.
//
// # Key Types
//
//   - Message: a user or assistant turn with content, reasoning, tools and sources
//   - Source: a retrieved document fragment cited inline as [n]
//   - Event: the sum type of streamed updates (content, reasoning, tool start, sources)
//   - Accumulator: folds one turn's events into a single assistant message
//   - Conversation: ordered, id-keyed store of messages exposed to renderers
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.AppendUser("What is in notes.txt?")
//
//	acc := model.NewAccumulator(conv)
//	for _, ev := range events {
//	    if _, err := acc.Apply(ev); err != nil {
//	        return err
//	    }
//	}
//	acc.Finalize()
package model
