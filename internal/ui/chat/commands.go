// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragterm/internal/tasks"
	"github.com/jeranaias/ragterm/internal/ui/components"
)

// helpText lists the slash commands.
var helpText = []string{
	"/new              start a new thread",
	"/thread <id>      open an existing thread",
	"/cite <n>         show source [n] of the last reply",
	"/sources          list the sources of the last reply",
	"/reasoning        show or hide reasoning steps",
	"/tasks            show background tasks",
	"/retry <id>       retry a failed task",
	"/cancel <id>      cancel a running task",
	"/dismiss <id>     hide a task",
	"/quit             leave",
}

// runCommand executes one slash command typed into the input.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/exit", "/q":
		m.sess.Cancel()
		return m, tea.Quit

	case "/help", "/?":
		for _, h := range helpText {
			m.addNotice(h)
		}
		for _, h := range m.keys.helpLines() {
			m.addNotice(h)
		}

	case "/new":
		if _, err := m.sess.NewThread(); err != nil {
			m.addErrorNotice(describeError(err))
			break
		}
		m.notices = nil
		m.rendered.reset()

	case "/thread":
		if len(args) != 1 {
			m.addErrorNotice("Usage: /thread <id>")
			break
		}
		return m, m.switchThreadCmd(args[0])

	case "/cite", "/source":
		n, ok := citationArg(args)
		if !ok {
			m.addErrorNotice("Usage: /cite <n>")
			break
		}
		src, found := m.sess.LastCitation(n)
		if !found {
			m.addErrorNotice(fmt.Sprintf("Source [%d] is no longer available.", n))
			break
		}
		m.addNotice(fmt.Sprintf("[%d] %s", n, src.Location()))
		if content := strings.TrimSpace(src.Content); content != "" {
			m.addNotice(content)
		}

	case "/sources":
		last, ok := m.conv.LastAssistant()
		if !ok || len(last.Sources) == 0 {
			m.addNotice("The last reply cited no sources.")
			break
		}
		for _, s := range last.Sources {
			m.addNotice(fmt.Sprintf("[%d] %s", s.ID, s.Location()))
		}

	case "/reasoning":
		on := m.sess.ToggleReasoning()
		m.rendered.reset()
		state := "hidden"
		if on {
			state = "shown"
		}
		m.syncStatus()
		m.updateViewport()
		return m, m.toast(components.ToastKindStatus, "Reasoning steps "+state)

	case "/tasks":
		if m.poller == nil {
			m.addErrorNotice("Task tracking is off.")
			break
		}
		v := m.poller.Views()
		m.addNotice("Tasks: " + tasks.Summary(v))
		for _, t := range v.Active {
			m.addNotice(fmt.Sprintf("  active  %s %s (%d%%)", t.ID, t.Label(), t.ClampedProgress()))
		}
		for _, t := range v.RecentlyCompleted {
			m.addNotice(fmt.Sprintf("  done    %s %s", t.ID, t.Label()))
		}
		for _, t := range v.Failed {
			line := fmt.Sprintf("  failed  %s %s", t.ID, t.Label())
			if t.ErrorCode != "" {
				line += " " + t.ErrorCode
			}
			m.addNotice(line)
		}

	case "/retry", "/cancel", "/dismiss":
		if m.poller == nil {
			m.addErrorNotice("Task tracking is off.")
			break
		}
		if len(args) != 1 {
			m.addErrorNotice("Usage: " + name + " <id>")
			break
		}
		return m, m.taskActionCmd(strings.TrimPrefix(name, "/"), args[0])

	default:
		m.addErrorNotice("Unknown command " + name + ". Type /help for the list.")
	}

	m.syncStatus()
	m.updateViewport()
	return m, nil
}

// citationArg parses "3" or "[3]".
func citationArg(args []string) (int, bool) {
	if len(args) != 1 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.Trim(args[0], "[]"))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
