// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/api"
)

// Version information (set at build time via ldflags).
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the ragterm command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "ragterm",
		Short: "Terminal client for a RAG chat backend",
		Long: `ragterm talks to a retrieval-augmented chat server.

Upload documents into workspaces, ask questions with streamed, cited
answers, and keep an eye on ingestion tasks from the terminal.

Run "ragterm chat" for an interactive session or "ragterm tui" for the
full-screen interface.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
	}

	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.Err)
	root.SetVersionTemplate(fmt.Sprintf("ragterm %s (commit %s, built %s)\n", Version, GitCommit, BuildDate))
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return NewValidationErrorWithExample("flag", "", err.Error(), cmd.UseLine())
	})

	pf := root.PersistentFlags()
	pf.StringVar(&app.flags.apiURL, "api-url", "", "backend base URL (overrides config and RAGTERM_API_URL)")
	pf.StringVarP(&app.flags.workspace, "workspace", "w", "", "workspace id (default: the saved current workspace)")
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default ~/.ragterm/config.toml)")
	pf.StringVar(&app.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&app.flags.json, "json", false, "output JSON")
	pf.BoolVarP(&app.flags.yes, "yes", "y", false, "skip confirmation prompts")

	root.AddCommand(
		newAskCommand(app),
		newChatCommand(app),
		newTUICommand(app),
		newDocsCommand(app),
		newWorkspacesCommand(app),
		newThreadsCommand(app),
		newSettingsCommand(app),
		newToolsCommand(app),
		newTasksCommand(app),
		newSearchCommand(app),
		newMetricsCommand(app),
		newStatusCommand(app),
		newConfigCommand(app),
	)
	return root
}

// =============================================================================
// EXECUTION
// =============================================================================

// Run executes args against app and returns the exit code. Errors are
// reported on app's streams.
func Run(ctx context.Context, app *App, args []string) int {
	root := NewRootCommand(app)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if cerr := app.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err == nil {
		return ExitSuccess
	}

	if api.IsTransport(err) {
		app.log.Debug("transport failure", "err", err)
	}
	name := "ragterm"
	if cmd != nil {
		name = commandName(cmd)
	}
	var reported *reportedError
	if !errors.Is(err, errCanceled) && !errors.As(err, &reported) {
		DisplayError(app.Out, app.Err, name, err, app.flags.json)
	}
	return ExitCodeFor(err)
}

// Execute runs the CLI on the process streams and returns the exit code.
func Execute() int {
	app := NewApp(os.Stdin, os.Stdout, os.Stderr)
	return Run(context.Background(), app, os.Args[1:])
}

// exactArgs is cobra.ExactArgs with a usage-classified error.
func exactArgs(n int, example string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return NewValidationErrorWithExample("arguments", "",
				fmt.Sprintf("accepts %d arg(s), received %d", n, len(args)), example)
		}
		return nil
	}
}

// minArgs is cobra.MinimumNArgs with a usage-classified error.
func minArgs(n int, example string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return NewValidationErrorWithExample("arguments", "",
				fmt.Sprintf("requires at least %d arg(s), received %d", n, len(args)), example)
		}
		return nil
	}
}
