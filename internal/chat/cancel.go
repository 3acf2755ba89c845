// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// =============================================================================
// TURN CANCELLATION
// =============================================================================

// turnGuard owns the context of the streaming turn. Cancel arrives from the
// UI goroutine while Submit blocks in another one. Each turn gets a
// sequence number so a finished turn never cancels its successor.
type turnGuard struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// begin derives the turn context and returns the func that releases it.
// release closes the channel abort hands out, so it must run after the
// turn's last write to the conversation.
func (g *turnGuard) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)
	done := make(chan struct{})

	g.mu.Lock()
	g.seq++
	seq := g.seq
	g.cancel, g.done = cancel, done
	g.mu.Unlock()

	return ctx, func() {
		g.mu.Lock()
		if g.seq == seq {
			g.cancel, g.done = nil, nil
		}
		g.mu.Unlock()
		cancel(nil)
		close(done)
	}
}

// abort cancels the current turn with cause and returns a channel that is
// closed once that turn has been released. It returns nil between turns.
func (g *turnGuard) abort(cause error) <-chan struct{} {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.cancel = nil
	g.mu.Unlock()

	if cancel != nil {
		cancel(cause)
	}
	return done
}
