// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCompletedWindow is how long a completed task stays visible.
const DefaultCompletedWindow = 60 * time.Second

// Views are the derived, non-overlapping task lists shown to the user.
type Views struct {
	Active            []Task
	RecentlyCompleted []Task
	Failed            []Task
	HasActiveWork     bool
}

// Partition splits tasks into views, skipping dismissed ids.
//
// Completed tasks last updated more than window before now are hidden but
// not dismissed. Canceled tasks appear in no view.
func Partition(all []Task, dismissed map[string]bool, now time.Time, window time.Duration) Views {
	var v Views
	for _, t := range all {
		if dismissed[t.ID] {
			continue
		}
		switch t.Status {
		case StatusPending, StatusProcessing:
			v.Active = append(v.Active, t.Clone())
		case StatusCompleted:
			if !t.UpdatedAt.IsZero() && t.Age(now) <= window {
				v.RecentlyCompleted = append(v.RecentlyCompleted, t.Clone())
			}
		case StatusFailed:
			v.Failed = append(v.Failed, t.Clone())
		}
	}
	v.HasActiveWork = len(v.Active) > 0
	return v
}

// Find returns the task with the given id from any view.
func (v Views) Find(id string) (Task, bool) {
	for _, list := range [][]Task{v.Active, v.RecentlyCompleted, v.Failed} {
		for _, t := range list {
			if t.ID == id {
				return t, true
			}
		}
	}
	return Task{}, false
}

// Len returns the total number of visible tasks.
func (v Views) Len() int {
	return len(v.Active) + len(v.RecentlyCompleted) + len(v.Failed)
}

// Summary returns a one-line status such as "2 active · 1 failed".
func Summary(v Views) string {
	var parts []string
	if n := len(v.Active); n > 0 {
		parts = append(parts, fmt.Sprintf("%d active", n))
	}
	if n := len(v.RecentlyCompleted); n > 0 {
		parts = append(parts, fmt.Sprintf("%d done", n))
	}
	if n := len(v.Failed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", n))
	}
	if len(parts) == 0 {
		return "idle"
	}
	return strings.Join(parts, " · ")
}
