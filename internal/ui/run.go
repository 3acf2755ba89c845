// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui runs the full-screen chat interface.
package ui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	session "github.com/jeranaias/ragterm/internal/chat"
	"github.com/jeranaias/ragterm/internal/tasks"
	"github.com/jeranaias/ragterm/internal/ui/chat"
	"github.com/jeranaias/ragterm/internal/ui/styles"
)

// Options configures Run.
type Options struct {
	Session *session.Session
	Poller  *tasks.Poller
	Server  string
	// Theme is "auto", "dark", "light" or "none".
	Theme  string
	Logger *log.Logger
}

// Run shows the chat screen until the user quits or ctx is canceled.
// The caller owns the poller's lifecycle.
func Run(ctx context.Context, opts Options) error {
	if opts.Session == nil {
		return errors.New("ui: session is required")
	}

	m := chat.New(ctx, chat.Options{
		Session: opts.Session,
		Poller:  opts.Poller,
		Theme:   styles.NewTheme(opts.Theme),
		Server:  opts.Server,
		Logger:  opts.Logger,
	})

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	final, err := p.Run()
	if fm, ok := final.(chat.Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	opts.Session.Cancel()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run interface: %w", err)
	}
	return nil
}
