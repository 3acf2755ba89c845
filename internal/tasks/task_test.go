// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jeranaias/ragterm/internal/model"
)

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPending, true},
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCanceled, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusCanceled, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusPending, false},
		{StatusCanceled, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusPending, Status("exploded"), false},
	}

	for _, tc := range tests {
		if got := ValidTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTask_DecodeServerJSON(t *testing.T) {
	raw := `{
		"id": "t-123456789",
		"type": "ingestion",
		"status": "processing",
		"progress": 40,
		"message": "Embedding chunks",
		"metadata": {"filename": "notes.txt"},
		"workspace_id": "ws1",
		"created_at": "2025-03-01T10:00:00.123456",
		"updated_at": "2025-03-01T10:00:05Z"
	}`

	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if task.Status != StatusProcessing || task.Progress != 40 {
		t.Errorf("unexpected task: %+v", task)
	}
	if task.Label() != "notes.txt" {
		t.Errorf("Label() = %q, want notes.txt", task.Label())
	}
	if task.CreatedAt.Year() != 2025 || task.UpdatedAt.Second() != 5 {
		t.Errorf("timestamps not parsed: %v %v", task.CreatedAt, task.UpdatedAt)
	}
}

func TestTask_LabelFallback(t *testing.T) {
	task := Task{ID: "abcdef0123456789", Type: "ingestion"}
	if got := task.Label(); got != "ingestion abcdef01" {
		t.Errorf("Label() = %q", got)
	}
}

func TestTask_ClampedProgress(t *testing.T) {
	if got := (Task{Progress: 150}).ClampedProgress(); got != 100 {
		t.Errorf("expected progress capped at 100, got %d", got)
	}
	if got := (Task{Progress: -10}).ClampedProgress(); got != 0 {
		t.Errorf("expected progress floored at 0, got %d", got)
	}
}

// =============================================================================
// PARTITION TESTS
// =============================================================================

func at(now time.Time, ago time.Duration) model.Timestamp {
	return model.Timestamp{Time: now.Add(-ago)}
}

func TestPartition_ExclusiveAndExhaustive(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	all := []Task{
		{ID: "p", Status: StatusPending, UpdatedAt: at(now, time.Second)},
		{ID: "r", Status: StatusProcessing, UpdatedAt: at(now, time.Second)},
		{ID: "c-new", Status: StatusCompleted, UpdatedAt: at(now, 10*time.Second)},
		{ID: "c-edge", Status: StatusCompleted, UpdatedAt: at(now, 60*time.Second)},
		{ID: "c-old", Status: StatusCompleted, UpdatedAt: at(now, 61*time.Second)},
		{ID: "f", Status: StatusFailed, UpdatedAt: at(now, time.Hour)},
		{ID: "x", Status: StatusCanceled, UpdatedAt: at(now, time.Second)},
	}

	v := Partition(all, nil, now, DefaultCompletedWindow)

	assertIDs(t, "active", v.Active, "p", "r")
	assertIDs(t, "recently completed", v.RecentlyCompleted, "c-new", "c-edge")
	assertIDs(t, "failed", v.Failed, "f")
	if !v.HasActiveWork {
		t.Error("HasActiveWork should be true")
	}

	seen := map[string]int{}
	for _, list := range [][]Task{v.Active, v.RecentlyCompleted, v.Failed} {
		for _, task := range list {
			seen[task.ID]++
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("task %s appears in %d views", id, n)
		}
	}
}

func TestPartition_Dismissed(t *testing.T) {
	now := time.Now()
	all := []Task{
		{ID: "a", Status: StatusProcessing},
		{ID: "b", Status: StatusFailed},
		{ID: "c", Status: StatusCompleted, UpdatedAt: at(now, time.Second)},
	}

	v := Partition(all, map[string]bool{"a": true, "b": true, "c": true}, now, DefaultCompletedWindow)
	if v.Len() != 0 || v.HasActiveWork {
		t.Errorf("dismissed tasks should be hidden: %+v", v)
	}
}

func TestPartition_CompletedWithoutTimestampHidden(t *testing.T) {
	v := Partition([]Task{{ID: "c", Status: StatusCompleted}}, nil, time.Now(), DefaultCompletedWindow)
	if len(v.RecentlyCompleted) != 0 {
		t.Errorf("completed task without updated_at should be hidden")
	}
}

func TestSummary(t *testing.T) {
	if got := Summary(Views{}); got != "idle" {
		t.Errorf("Summary(empty) = %q", got)
	}
	v := Views{Active: []Task{{}, {}}, Failed: []Task{{}}}
	if got := Summary(v); got != "2 active · 1 failed" {
		t.Errorf("Summary = %q", got)
	}
}

func assertIDs(t *testing.T, name string, list []Task, want ...string) {
	t.Helper()
	if len(list) != len(want) {
		t.Errorf("%s: got %d tasks, want %d", name, len(list), len(want))
		return
	}
	for i, task := range list {
		if task.ID != want[i] {
			t.Errorf("%s[%d] = %s, want %s", name, i, task.ID, want[i])
		}
	}
}
