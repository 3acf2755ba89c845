// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command implementation for ragterm.
//
// Command: status
// Short:   Check the backend and show the client's current context
// Aliases: s, info
//
// Examples:
//   ragterm status                Show status
//   ragterm status --json         Status in JSON format
//
// Sections:
//   Backend:  URL and reachability
//   Context:  Current workspace, remembered thread, config and state paths
//   Tasks:    One-line task summary when the backend is reachable
//
// A failed health check still prints the context and exits with the
// network error code.

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/config"
	"github.com/jeranaias/ragterm/internal/tasks"
)

// StatusReport is the JSON payload of the status command.
type StatusReport struct {
	BaseURL     string `json:"base_url"`
	Reachable   bool   `json:"reachable"`
	Error       string `json:"error,omitempty"`
	WorkspaceID string `json:"workspace_id"`
	ThreadID    string `json:"thread_id,omitempty"`
	ConfigPath  string `json:"config_path"`
	StatePath   string `json:"state_path"`
	Tasks       string `json:"tasks,omitempty"`
}

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"s", "info"},
		Short:   "Check the backend and show the current workspace and thread",
		Args:    exactArgs(0, "ragterm status"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			report := StatusReport{BaseURL: app.Client().BaseURL()}

			ws, err := app.Workspace(ctx)
			if err != nil {
				return err
			}
			store, err := app.State(ctx)
			if err != nil {
				return err
			}
			report.WorkspaceID = ws
			report.ThreadID = store.ThreadID(ws)
			report.ConfigPath = app.configPath()
			report.StatePath, _ = app.Config().StatePath()

			healthErr := app.Client().Health(ctx)
			if healthErr == nil {
				report.Reachable = true
				if list, err := app.Client().ListTasks(ctx, app.Config().Tasks.Type); err == nil {
					dismissed := make(map[string]bool)
					for _, id := range store.Dismissed() {
						dismissed[id] = true
					}
					report.Tasks = tasks.Summary(tasks.Partition(list, dismissed, time.Now(), app.Config().Tasks.CompletedWindow.Duration))
				}
			} else {
				_, detail := FormatError(healthErr)
				report.Error = detail
			}

			if app.flags.json {
				if err := NewJSONResponse(commandName(cmd), report).Write(app.Out); err != nil {
					return err
				}
				if healthErr != nil {
					return &reportedError{err: healthErr}
				}
				return nil
			}

			printTitle(app.Out, "ragterm status")
			fmt.Fprintln(app.Out, SectionStyle.Render("Backend"))
			printField(app.Out, "URL", report.BaseURL)
			if report.Reachable {
				printField(app.Out, "Health", SuccessStyle.Render("reachable"))
			} else {
				printField(app.Out, "Health", ErrorStyle.Render("unreachable"))
				printField(app.Out, "Error", report.Error)
			}
			fmt.Fprintln(app.Out, SectionStyle.Render("Context"))
			printField(app.Out, "Workspace", orDefault(report.WorkspaceID))
			printField(app.Out, "Thread", orNone(report.ThreadID))
			printField(app.Out, "Config", report.ConfigPath)
			printField(app.Out, "State", report.StatePath)
			if report.Tasks != "" {
				fmt.Fprintln(app.Out, SectionStyle.Render("Tasks"))
				printField(app.Out, "Summary", report.Tasks)
			}
			if healthErr != nil {
				return &reportedError{err: healthErr}
			}
			return nil
		},
	}
}

// configPath is the config file in effect: --config, else the default.
func (a *App) configPath() string {
	if a.flags.configPath != "" {
		return a.flags.configPath
	}
	path, err := config.ConfigPath()
	if err != nil {
		return "-"
	}
	return path
}

func orDefault(ws string) string {
	if ws == "" {
		return DimStyle.Render("(default)")
	}
	return ws
}

func orNone(s string) string {
	if s == "" {
		return DimStyle.Render("(none)")
	}
	return s
}
