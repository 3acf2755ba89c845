// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"fmt"
	"time"

	"github.com/jeranaias/ragterm/internal/model"
)

// DefaultType is the task type the client polls for.
const DefaultType = "ingestion"

// =============================================================================
// TASK STATUS
// =============================================================================

// Status represents the current state of a background task.
type Status string

const (
	// StatusPending indicates the task is waiting to be executed
	StatusPending Status = "pending"

	// StatusProcessing indicates the task is currently executing
	StatusProcessing Status = "processing"

	// StatusCompleted indicates the task finished successfully
	StatusCompleted Status = "completed"

	// StatusFailed indicates the task encountered an error
	StatusFailed Status = "failed"

	// StatusCanceled indicates the task was canceled by the user
	StatusCanceled Status = "canceled"
)

// String returns the string representation of the task status.
func (s Status) String() string {
	return string(s)
}

// IsActive reports whether the task is still pending or processing.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusProcessing
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// rank orders statuses along the only allowed direction of travel.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed, StatusCanceled:
		return 2
	default:
		return -1
	}
}

// ValidTransition checks whether a task may move from one status to another.
// Valid transitions: pending -> processing -> completed/failed, and any
// non-terminal status -> canceled. A poll may skip processing entirely.
func ValidTransition(from, to Status) bool {
	// Allow setting the same status (idempotent)
	if from == to {
		return true
	}
	if from.rank() < 0 || to.rank() < 0 {
		return false
	}
	if from.IsTerminal() {
		// Terminal states - no transitions allowed
		return false
	}
	return to.rank() > from.rank()
}

// =============================================================================
// TASK STRUCTURE
// =============================================================================

// Task is a server-tracked background job.
type Task struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Status      Status                 `json:"status"`
	Progress    int                    `json:"progress"`
	Message     string                 `json:"message,omitempty"`
	ErrorCode   string                 `json:"error_code,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	WorkspaceID string                 `json:"workspace_id,omitempty"`
	Result      interface{}            `json:"result,omitempty"`
	CreatedAt   model.Timestamp        `json:"created_at"`
	UpdatedAt   model.Timestamp        `json:"updated_at"`
}

// Clone returns a copy of the task with its own metadata map.
func (t Task) Clone() Task {
	out := t
	if t.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(t.Metadata))
		for k, v := range t.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Label returns a human-readable name for the task, preferring the file or
// URL it is ingesting.
func (t Task) Label() string {
	for _, key := range []string{"filename", "file_name", "name", "url"} {
		if v, ok := t.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	id := t.ID
	if len(id) > 8 {
		id = id[:8]
	}
	if t.Type != "" {
		return fmt.Sprintf("%s %s", t.Type, id)
	}
	return id
}

// ClampedProgress returns progress bounded to 0-100.
func (t Task) ClampedProgress() int {
	if t.Progress < 0 {
		return 0
	}
	if t.Progress > 100 {
		return 100
	}
	return t.Progress
}

// Age returns how long ago the task was last updated.
func (t Task) Age(now time.Time) time.Duration {
	if t.UpdatedAt.IsZero() {
		return 0
	}
	return now.Sub(t.UpdatedAt.Time)
}
