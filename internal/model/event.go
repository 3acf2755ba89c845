// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "fmt"

// =============================================================================
// STREAM EVENTS
// =============================================================================

// EventKind is the wire discriminant of a streamed event.
type EventKind string

const (
	KindContent   EventKind = "content"
	KindReasoning EventKind = "reasoning"
	KindToolStart EventKind = "tool_start"
	KindSources   EventKind = "sources"
)

// Event is one decoded update of an assistant turn. The set of
// implementations is closed: ContentEvent, ReasoningEvent, ToolStartEvent
// and SourcesEvent.
type Event interface {
	Kind() EventKind
	isEvent()
}

// ContentEvent carries a text delta to append to the message content.
type ContentEvent struct {
	Delta string
}

// ReasoningEvent carries the complete running list of reasoning steps.
type ReasoningEvent struct {
	Steps []string
}

// ToolStartEvent reports that the backend started running a tool.
type ToolStartEvent struct {
	Tool string
}

// SourcesEvent carries the complete list of retrieved sources.
type SourcesEvent struct {
	Sources []Source
}

func (ContentEvent) Kind() EventKind   { return KindContent }
func (ReasoningEvent) Kind() EventKind { return KindReasoning }
func (ToolStartEvent) Kind() EventKind { return KindToolStart }
func (SourcesEvent) Kind() EventKind   { return KindSources }

func (ContentEvent) isEvent()   {}
func (ReasoningEvent) isEvent() {}
func (ToolStartEvent) isEvent() {}
func (SourcesEvent) isEvent()   {}

// ToolLabel is the running-status label shown for a started tool.
func ToolLabel(tool string) string {
	return fmt.Sprintf("Running %s...", tool)
}
