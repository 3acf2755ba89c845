// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Full-screen chat interface.
//
// Usage:
//
//	ragterm tui
//	ragterm tui --new
//
// Logs go to ~/.ragterm/tui.log while the interface owns the screen.

package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/config"
	"github.com/jeranaias/ragterm/internal/logging"
	"github.com/jeranaias/ragterm/internal/ui"
)

const tuiLogFile = "tui.log"

func newTUICommand(app *App) *cobra.Command {
	var newThread bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen chat interface",
		Args:  exactArgs(0, "ragterm tui"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.flags.json {
				return NewValidationErrorWithExample("--json", "", "not supported by the full-screen interface", "ragterm ask --json <question>")
			}
			if !isTerminal(app.In) || !isTerminal(app.Out) {
				return &TTYRequiredError{Operation: "open the full-screen interface"}
			}

			if logFile := app.redirectLog(); logFile != nil {
				defer logFile.Close()
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			session, err := app.NewSession(ctx)
			if err != nil {
				return err
			}
			if newThread {
				if _, err := session.NewThread(); err != nil {
					return err
				}
			}

			poller, err := app.NewPoller(ctx)
			if err != nil {
				return err
			}
			poller.Start(ctx)
			defer poller.Stop()

			return ui.Run(ctx, ui.Options{
				Session: session,
				Poller:  poller,
				Server:  app.Client().BaseURL(),
				Theme:   app.Config().UI.Theme,
				Logger:  app.log,
			})
		},
	}
	cmd.Flags().BoolVar(&newThread, "new", false, "start a new thread instead of resuming")
	return cmd
}

// redirectLog points the app and client loggers at the TUI log file, since
// stderr output would corrupt the alternate screen. Logging is discarded
// when the file cannot be opened.
func (a *App) redirectLog() io.Closer {
	lvl := a.log.GetLevel()

	var out io.Writer = io.Discard
	var closer io.Closer
	if dir, err := config.ConfigDir(); err == nil {
		if err := os.MkdirAll(dir, 0o700); err == nil {
			f, err := os.OpenFile(filepath.Join(dir, tuiLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err == nil {
				out, closer = f, f
			}
		}
	}

	a.log = logging.New(out, lvl)
	logging.SetDefault(a.log)
	a.client.WithLogger(a.log)
	a.log.Info("interface starting", "api", a.client.BaseURL(), "level", lvl.String())
	return closer
}
