// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragterm/internal/tasks"
	"github.com/jeranaias/ragterm/internal/ui/styles"
	"github.com/jeranaias/ragterm/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status represents the current chat status.
type Status int

const (
	StatusReady Status = iota
	StatusStreaming
	StatusOffline
)

// String returns the display string for the status
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusStreaming:
		return "Streaming..."
	case StatusOffline:
		return "Offline"
	default:
		return "Unknown"
	}
}

// Icon returns an icon readable without color.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return styles.StatusIndicators.Success
	case StatusStreaming:
		return "~"
	case StatusOffline:
		return styles.StatusIndicators.Error
	default:
		return "?"
	}
}

// StatusBar is the bottom line of the TUI.
type StatusBar struct {
	Workspace     string
	ThreadID      string
	Tasks         tasks.Views
	TasksReady    bool
	Status        Status
	ShowReasoning bool
	Width         int
	ShowShortcuts bool
	theme         *styles.Theme
}

// NewStatusBar creates a new StatusBar component
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Status:        StatusReady,
		Width:         80,
		ShowShortcuts: true,
		theme:         theme,
	}
}

// SetWidth sets the available width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// View renders the status bar.
//
// Format: [OK] Ready | ws research | thread 1f0c2a9b | tasks 2 active | shortcuts
func (s *StatusBar) View() string {
	t := s.theme
	sep := t.Separator.Render(" | ")

	layout := styles.LayoutFor(s.Width)
	parts := []string{s.renderStatus()}
	if layout >= styles.LayoutMedium {
		ws := s.Workspace
		if ws == "" {
			ws = "default"
		}
		parts = append(parts, t.StatusKey.Render("ws ")+t.StatusValue.Render(ws))
	}
	if layout == styles.LayoutWide && s.ThreadID != "" {
		id := s.ThreadID
		if len(id) > 8 {
			id = id[:8]
		}
		parts = append(parts, t.StatusKey.Render("thread ")+t.StatusValue.Render(id))
	}
	parts = append(parts, t.StatusKey.Render("tasks ")+s.renderTasks())
	if s.ShowReasoning && layout >= styles.LayoutMedium {
		parts = append(parts, t.StatusKey.Render("reasoning on"))
	}

	left := strings.Join(parts, sep)
	right := ""
	if s.ShowShortcuts && layout == styles.LayoutWide {
		right = t.Shortcut.Render("enter send  esc cancel  ctrl+n new  ctrl+r reasoning  ctrl+c quit")
	}

	inner := s.Width - t.StatusBar.GetHorizontalFrameSize()
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		right, gap = "", inner-lipgloss.Width(left)
	}
	if gap < 0 {
		gap = 0
	}
	return t.StatusBar.Width(s.Width).Render(left + strings.Repeat(" ", gap) + right)
}

func (s *StatusBar) renderStatus() string {
	t := s.theme
	text := s.Status.Icon() + " " + s.Status.String()
	switch s.Status {
	case StatusStreaming:
		return t.StatusActive.Render(text)
	case StatusOffline:
		return t.StatusFailed.Render(text)
	default:
		return t.StatusIdle.Render(text)
	}
}

// renderTasks colors the task summary by its most urgent state.
func (s *StatusBar) renderTasks() string {
	t := s.theme
	if !s.TasksReady {
		return t.StatusKey.Render("...")
	}
	summary := util.Truncate(tasks.Summary(s.Tasks), 40)
	switch {
	case len(s.Tasks.Failed) > 0:
		return t.StatusFailed.Render(summary)
	case s.Tasks.HasActiveWork:
		return t.StatusActive.Render(summary)
	default:
		return t.StatusIdle.Render(summary)
	}
}
