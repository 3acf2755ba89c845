// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds the chat screen bindings. Everything not bound here goes to
// the text input.
type KeyMap struct {
	Up, Down, PageUp, PageDown, Home, End key.Binding

	Submit    key.Binding
	Cancel    key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	NewThread key.Binding
	Reasoning key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:        bind("up", "scroll up", "up"),
		Down:      bind("down", "scroll down", "down"),
		PageUp:    bind("PgUp/C-u", "page up", "pgup", "ctrl+u"),
		PageDown:  bind("PgDn/C-d", "page down", "pgdown", "ctrl+d"),
		Home:      bind("Home", "top of thread", "home"),
		End:       bind("End", "latest message", "end"),
		Submit:    bind("Enter", "send", "enter"),
		Cancel:    bind("Esc", "stop reply, dismiss toast or clear input", "esc"),
		Quit:      bind("C-c", "stop reply, or quit when idle", "ctrl+c"),
		ForceQuit: bind("C-q", "quit", "ctrl+q"),
		NewThread: bind("C-n", "new thread", "ctrl+n"),
		Reasoning: bind("C-r", "show or hide reasoning", "ctrl+r"),
	}
}

// ShortHelp is the subset worth showing in a single line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel, k.NewThread, k.Quit}
}

// FullHelp groups every binding by purpose: scrolling, the turn, leaving.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		{k.Submit, k.Cancel, k.NewThread, k.Reasoning},
		{k.Quit, k.ForceQuit},
	}
}

// helpLines formats FullHelp in the same column layout as helpText.
func (k KeyMap) helpLines() []string {
	var lines []string
	for _, group := range k.FullHelp() {
		for _, b := range group {
			h := b.Help()
			lines = append(lines, fmt.Sprintf("%-18s %s", h.Key, h.Desc))
		}
	}
	return lines
}
