// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
)

// ErrTurnFinalized is returned when an event arrives after Finalize.
var ErrTurnFinalized = errors.New("turn already finalized")

// ErrUnknownEvent is returned for an Event implementation the accumulator
// does not handle.
var ErrUnknownEvent = errors.New("unknown event")

// Publisher receives every updated snapshot of the in-progress message.
// *Conversation implements it.
type Publisher interface {
	Upsert(msg Message)
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator folds the events of one user turn into a single assistant
// message. Create one per turn.
//
// The message identity is created on the first event, not on submit. Each
// update is published immediately.
type Accumulator struct {
	pub       Publisher
	msg       *Message
	finalized bool
}

// NewAccumulator creates an accumulator that publishes to pub.
func NewAccumulator(pub Publisher) *Accumulator {
	return &Accumulator{pub: pub}
}

// Apply folds one event into the current snapshot and publishes the result.
func (a *Accumulator) Apply(ev Event) (Message, error) {
	if a.finalized {
		return Message{}, ErrTurnFinalized
	}

	// Work on a copy so a rejected event leaves the snapshot untouched
	var next Message
	if a.msg == nil {
		next = newAssistantMessage()
	} else {
		next = a.msg.Clone()
	}

	switch e := ev.(type) {
	case ContentEvent:
		next.Content += e.Delta
	case ReasoningEvent:
		next.ReasoningSteps = append([]string{}, e.Steps...)
	case ToolStartEvent:
		next.Tools = append(next.Tools, ToolLabel(e.Tool))
	case SourcesEvent:
		next.Sources = append([]Source{}, e.Sources...)
	default:
		return Message{}, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}

	a.msg = &next
	a.publish()
	return next.Clone(), nil
}

// Finalize marks the message as complete and publishes the final snapshot.
// Returns false when no event arrived during the turn. Safe to call twice.
func (a *Accumulator) Finalize() (Message, bool) {
	if a.finalized {
		if a.msg == nil {
			return Message{}, false
		}
		return a.msg.Clone(), true
	}
	a.finalized = true
	if a.msg == nil {
		return Message{}, false
	}

	a.msg.Finalized = true
	a.publish()
	return a.msg.Clone(), true
}

// Current returns the latest snapshot, if the turn has started.
func (a *Accumulator) Current() (Message, bool) {
	if a.msg == nil {
		return Message{}, false
	}
	return a.msg.Clone(), true
}

// Started reports whether any event has been applied.
func (a *Accumulator) Started() bool {
	return a.msg != nil
}

func (a *Accumulator) publish() {
	if a.pub != nil {
		a.pub.Upsert(a.msg.Clone())
	}
}
