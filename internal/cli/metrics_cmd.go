// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/metrics"
)

func newMetricsCommand(app *App) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show the backend's Prometheus metrics as a dashboard",
		Args:  exactArgs(0, "ragterm metrics"),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := app.Client().Metrics(cmd.Context())
			if err != nil {
				return err
			}
			if raw {
				fmt.Fprint(app.Out, text)
				return nil
			}

			snap, err := metrics.Parse(text)
			if err != nil {
				return &CommandError{Command: "metrics", Reason: "the backend returned unreadable metrics", Err: err}
			}
			rows := snap.Render(metrics.Dashboard)
			return app.emit(cmd, rows, func() {
				printTitle(app.Out, "Backend metrics")
				for _, r := range rows {
					value := r.Value
					if !r.Found {
						value = DimStyle.Render(metrics.Unavailable)
					}
					printField(app.Out, r.Label, value)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the exposition text unparsed")
	return cmd
}
