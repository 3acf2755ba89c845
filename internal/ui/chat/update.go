// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragterm/internal/api"
	session "github.com/jeranaias/ragterm/internal/chat"
	"github.com/jeranaias/ragterm/internal/tasks"
	"github.com/jeranaias/ragterm/internal/ui/components"
)

// Update handles every message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case conversationChangedMsg:
		m.syncStatus()
		m.updateViewport()
		return m, waitForChange(m.changes)

	case turnDoneMsg:
		return m.handleTurnDone(msg)

	case restoredMsg:
		if msg.err != nil {
			m.addErrorNotice("Could not restore the last thread: " + describeError(msg.err))
		}
		m.syncStatus()
		m.updateViewport()
		return m, nil

	case threadSwitchedMsg:
		if msg.err != nil {
			m.addErrorNotice(describeError(msg.err))
		} else {
			m.notices = nil
			m.addNotice("Switched to thread " + msg.threadID)
		}
		m.syncStatus()
		m.updateViewport()
		return m, nil

	case tasksUpdatedMsg:
		m.status.Tasks = msg.views
		m.status.TasksReady = true
		return m, waitForViews(m.taskViews)

	case taskNotificationMsg:
		kind := components.ToastKindSuccess
		if msg.n.Level == tasks.LevelError {
			kind = components.ToastKindError
		}
		text := msg.n.Title
		if msg.n.Message != "" {
			text += ": " + msg.n.Message
		}
		cmd := m.toast(kind, text)
		return m, tea.Batch(cmd, waitForNotification(m.poller.Notifications()))

	case taskActionMsg:
		if msg.err != nil {
			return m, m.toast(components.ToastKindError, describeError(msg.err))
		}
		return m, m.toast(components.ToastKindStatus, msg.verb+" "+msg.id+": done")

	case components.ToastTickMsg:
		if m.toasts.Tick() {
			return m, components.ToastTickCmd()
		}
		m.toastTicker = false
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case channelClosedMsg:
		return m, nil

	default:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	viewportHeight := m.height - reservedHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}
	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = viewportHeight

	const promptLen = 2 // "> "
	m.input.Width = max(m.width-promptLen-1, 10)

	m.header.SetWidth(m.width)
	m.status.SetWidth(m.width)

	m.updateViewport()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		m.sess.Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Quit):
		if m.sess.Loading() {
			m.sess.Cancel()
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.sess.Loading() {
			m.sess.Cancel()
			return m, nil
		}
		if m.toasts.Len() > 0 {
			m.toasts.Dismiss()
			return m, nil
		}
		m.input.Reset()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keys.NewThread):
		return m.runCommand("/new")

	case key.Matches(msg, m.keys.Reasoning):
		return m.runCommand("/reasoning")

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.runCommand(text)
	}
	if m.sess.Loading() {
		return m, m.toast(components.ToastKindStatus, "A reply is still streaming. Press Esc to cancel it.")
	}

	m.input.Reset()
	m.status.Status = components.StatusStreaming
	m.viewport.GotoBottom()
	return m, tea.Batch(m.spinner.Start(), m.submitCmd(text))
}

func (m Model) handleTurnDone(msg turnDoneMsg) (tea.Model, tea.Cmd) {
	abandoned := errors.Is(msg.err, session.ErrAbandoned)
	if abandoned && m.sess.Loading() {
		// A newer turn owns the spinner
		return m, nil
	}
	m.spinner.Stop()
	m.status.Status = components.StatusReady

	var cmd tea.Cmd
	switch err := msg.err; {
	case err == nil, abandoned:
	case errors.Is(err, context.Canceled):
		m.addNotice("[Cancelled]")
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrEmptyMessage):
	default:
		if api.IsTransport(err) {
			m.status.Status = components.StatusOffline
		}
		m.addErrorNotice(describeError(err))
		cmd = m.toast(components.ToastKindError, describeError(err))
	}

	m.syncStatus()
	m.updateViewport()
	return m, cmd
}

// describeError is the one-line text shown for a failed call.
func describeError(err error) string {
	var apiErr *api.APIError
	var turnErr *session.TurnError
	switch {
	case errors.As(err, &turnErr) && turnErr.IsFatal():
		return "Connection lost. The server ended the reply early."
	case api.IsTransport(err):
		return "Could not reach the server."
	case errors.As(err, &apiErr):
		title, detail := apiErr.UserMessage()
		if detail == "" {
			return title
		}
		return title + ": " + detail
	default:
		return err.Error()
	}
}
