// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragterm/internal/ui/styles"
)

// asciiLine is a four-frame spinner that renders on any terminal.
var asciiLine = spinner.Spinner{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    time.Second / 10,
}

// Spinner is the busy line shown while a reply streams: a frame, a label
// and the seconds since Start.
type Spinner struct {
	anim    spinner.Model
	label   string
	since   time.Time
	running bool
	clock   func() time.Time
}

// NewSpinner returns a stopped spinner labelled label.
func NewSpinner(label string) Spinner {
	anim := spinner.New()
	anim.Spinner = asciiLine
	return Spinner{anim: anim, label: label, clock: time.Now}
}

// SetMessage replaces the label.
func (s *Spinner) SetMessage(label string) { s.label = label }

// Start resets the timer and returns the first tick.
func (s *Spinner) Start() tea.Cmd {
	s.running = true
	s.since = s.clock()
	return s.anim.Tick
}

// Stop halts the animation; pending ticks are dropped by Update.
func (s *Spinner) Stop() { s.running = false }

// IsActive reports whether Start was called without a matching Stop.
func (s *Spinner) IsActive() bool { return s.running }

// Elapsed is the time since Start, or zero before the first Start.
func (s *Spinner) Elapsed() time.Duration {
	if s.since.IsZero() {
		return 0
	}
	return s.clock().Sub(s.since)
}

// Update forwards tick messages to the animation while running.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.running {
		return s, nil
	}
	var cmd tea.Cmd
	s.anim, cmd = s.anim.Update(msg)
	return s, cmd
}

func (s Spinner) View() string {
	if !s.running {
		return ""
	}
	frame := lipgloss.NewStyle().Foreground(styles.Purple).Render(s.anim.View())
	timer := lipgloss.NewStyle().Foreground(styles.TextMuted).
		Render(fmt.Sprintf("%.1fs", s.Elapsed().Seconds()))
	return frame + " " + s.label + " " + timer
}
