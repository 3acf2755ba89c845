// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragterm/internal/ui/styles"
	"github.com/jeranaias/ragterm/internal/util"
)

// ToastKind selects the color, mark and lifetime of a toast.
type ToastKind int

const (
	ToastKindStatus ToastKind = iota
	ToastKindError
	ToastKindSuccess
)

// Lifetimes. Errors stay up twice as long.
const (
	DefaultToastDuration = 4 * time.Second
	ErrorToastDuration   = 8 * time.Second
)

const (
	maxToasts      = 5
	toastTickEvery = 250 * time.Millisecond
)

type toastLook struct {
	color lipgloss.AdaptiveColor
	mark  string
}

func (k ToastKind) look() toastLook {
	switch k {
	case ToastKindError:
		return toastLook{styles.Rose, styles.StatusIndicators.Error}
	case ToastKindSuccess:
		return toastLook{styles.Emerald, styles.StatusIndicators.Success}
	}
	return toastLook{styles.Cyan, styles.StatusIndicators.Info}
}

func (k ToastKind) lifetime() time.Duration {
	if k == ToastKindError {
		return ErrorToastDuration
	}
	return DefaultToastDuration
}

// Toast is a one-line notice that never takes focus from the input.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// ToastManager is a bounded stack of toasts; the newest is shown. It is
// safe for concurrent use.
type ToastManager struct {
	mu     sync.Mutex
	stack  []Toast
	lastID int
	now    func() time.Time
}

func NewToastManager() *ToastManager {
	return &ToastManager{now: time.Now}
}

// Add pushes a toast, evicting the oldest beyond maxToasts, and returns
// its id.
func (m *ToastManager) Add(kind ToastKind, message string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastID++
	t := Toast{ID: m.lastID, Message: message, Kind: kind, CreatedAt: m.now(), Duration: kind.lifetime()}
	m.stack = append([]Toast{t}, m.stack...)
	if len(m.stack) > maxToasts {
		m.stack = m.stack[:maxToasts]
	}
	return t.ID
}

func (m *ToastManager) AddStatus(message string) int { return m.Add(ToastKindStatus, message) }
func (m *ToastManager) AddError(message string) int  { return m.Add(ToastKindError, message) }

// Dismiss drops the visible toast.
func (m *ToastManager) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.stack) > 0 {
		m.stack = m.stack[1:]
	}
}

// Tick expires old toasts. It returns false once the stack is empty, which
// is the caller's cue to stop ticking.
func (m *ToastManager) Tick() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	kept := m.stack[:0]
	for _, t := range m.stack {
		if now.Sub(t.CreatedAt) < t.Duration {
			kept = append(kept, t)
		}
	}
	m.stack = kept
	return len(kept) > 0
}

// Current returns the visible toast.
func (m *ToastManager) Current() (Toast, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.stack) == 0 {
		return Toast{}, false
	}
	return m.stack[0], true
}

func (m *ToastManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stack)
}

// ToastTickMsg drives expiry.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd schedules the next expiry pass.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(toastTickEvery, func(at time.Time) tea.Msg { return ToastTickMsg{Time: at} })
}

// RenderToast draws t on one line of width cells. A "(+n more)" count
// appears when queued toasts wait behind it.
func RenderToast(t Toast, queued, width int) string {
	look := t.Kind.look()

	hint := "  [esc] dismiss"
	if queued > 1 {
		hint = fmt.Sprintf("  (+%d more)%s", queued-1, hint)
	}
	room := width - util.Width(look.mark) - util.Width(hint) - 3
	text := util.Truncate(util.OneLine(t.Message), room)

	mark := lipgloss.NewStyle().Foreground(look.color).Bold(true).Render(look.mark)
	tail := lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true).Render(hint)
	return lipgloss.NewStyle().Width(width).Render(mark + " " + text + tail)
}
