// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// SOURCE TYPE
// =============================================================================

// Source is a retrieved document fragment referenced by an inline [n] marker.
// Sources are immutable once received.
type Source struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`

	// Extended metadata, present when the backend includes it
	DocumentID     string `json:"doc_id,omitempty"`
	WorkspaceID    string `json:"workspace_id,omitempty"`
	ChunkIndex     int    `json:"chunk_index,omitempty"`
	ChunkCount     int    `json:"chunk_count,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	ChunkSize      int    `json:"chunk_size,omitempty"`
	ChunkOverlap   int    `json:"chunk_overlap,omitempty"`
	ContentHash    string `json:"content_hash,omitempty"`
}

// Location returns "name" or "name (chunk i/n)" for display.
func (s Source) Location() string {
	if s.ChunkCount > 0 {
		return s.Name + " (chunk " + strconv.Itoa(s.ChunkIndex+1) + "/" + strconv.Itoa(s.ChunkCount) + ")"
	}
	return s.Name
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in a conversation.
//
// Content only grows while an assistant message streams. ReasoningSteps,
// Tools and Sources are replaced wholesale on each update.
type Message struct {
	// Identity
	ID   string `json:"id"`
	Role Role   `json:"role"`

	// Content
	Content        string   `json:"content"`
	ReasoningSteps []string `json:"reasoning_steps,omitempty"`
	Tools          []string `json:"tools,omitempty"`
	Sources        []Source `json:"sources,omitempty"`

	// Local state (not sent to the server)
	CreatedAt time.Time `json:"-"`
	Finalized bool      `json:"-"`
}

// NewUserMessage creates a finalized user message with a generated ID.
func NewUserMessage(content string) Message {
	return Message{
		ID:        generateID(),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
		Finalized: true,
	}
}

// newAssistantMessage creates the empty in-progress snapshot for a turn.
func newAssistantMessage() Message {
	return Message{
		ID:        generateID(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
	}
}

// Clone returns a deep copy so published snapshots never share slices.
func (m Message) Clone() Message {
	out := m
	if m.ReasoningSteps != nil {
		out.ReasoningSteps = append([]string(nil), m.ReasoningSteps...)
	}
	if m.Tools != nil {
		out.Tools = append([]string(nil), m.Tools...)
	}
	if m.Sources != nil {
		out.Sources = append([]Source(nil), m.Sources...)
	}
	return out
}

// IsUser reports whether the message was sent by the user.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsEmpty returns true if the message has no content.
func (m Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// CITATIONS
// =============================================================================

// Citation looks up source n in the message's sources.
// A miss is expected: the model may cite more sources than were returned.
func (m Message) Citation(n int) (Source, bool) {
	for _, s := range m.Sources {
		if s.ID == n {
			return s, true
		}
	}
	return Source{}, false
}

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// CitationMarkers returns the unique [n] ids referenced in content, in
// ascending order.
func CitationMarkers(content string) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, match := range citationPattern.FindAllStringSubmatch(content, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		ids = append(ids, n)
	}
	sort.Ints(ids)
	return ids
}

// =============================================================================
// HELPERS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	return "msg_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
