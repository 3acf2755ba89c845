// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/api"
)

func newToolsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tools",
		Aliases: []string{"tool"},
		Short:   "Manage backend tools the model may call",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tools",
		Args:    exactArgs(0, "ragterm tools list"),
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := app.Client().Tools(cmd.Context())
			if err != nil {
				return err
			}
			return app.emit(cmd, tools, func() {
				if len(tools) == 0 {
					fmt.Fprintln(app.Out, DimStyle.Render("No tools configured."))
					return
				}
				t := newTable("ID", "NAME", "TYPE", "STATUS", "DESCRIPTION")
				for _, tool := range tools {
					t.add(tool.ID, tool.Name, tool.Type, enabledLabel(tool.Enabled), tool.Description)
				}
				t.render(app.Out)
			})
		},
	}

	var in api.ToolInput
	var disabled bool
	var configPairs map[string]string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a tool",
		Args:  exactArgs(1, `ragterm tools add web_search --type http --config url=https://search.example`),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			in.Enabled = !disabled
			if len(configPairs) > 0 {
				in.Config = make(map[string]interface{}, len(configPairs))
				for k, v := range configPairs {
					in.Config[k] = parseSettingValue(v)
				}
			}
			tool, err := app.Client().CreateTool(cmd.Context(), in)
			if err != nil {
				return err
			}
			return app.emit(cmd, tool, func() {
				fmt.Fprintf(app.Out, "%s Added tool %s %s\n", SuccessStyle.Render("[OK]"), tool.Name, DimStyle.Render("("+tool.ID+")"))
			})
		},
	}
	add.Flags().StringVar(&in.Description, "description", "", "what the tool does")
	add.Flags().StringVar(&in.Type, "type", "", "tool type")
	add.Flags().BoolVar(&disabled, "disabled", false, "register the tool disabled")
	add.Flags().StringToStringVar(&configPairs, "config", nil, "tool configuration as key=value pairs")

	remove := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a tool",
		Args:    exactArgs(1, "ragterm tools delete t-1"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.RequireConfirmation("delete tool " + args[0])
			if err != nil {
				return err
			}
			if !ok {
				app.ShowCancellationMessage()
				return nil
			}
			if err := app.Client().DeleteTool(cmd.Context(), args[0]); err != nil {
				return err
			}
			return app.emit(cmd, map[string]string{"deleted": args[0]}, func() {
				fmt.Fprintf(app.Out, "%s Deleted tool %s\n", SuccessStyle.Render("[OK]"), args[0])
			})
		},
	}

	cmd.AddCommand(list, add, newToolToggleCommand(app, true), newToolToggleCommand(app, false), remove)
	return cmd
}

func newToolToggleCommand(app *App, enable bool) *cobra.Command {
	use, short := "disable <id>", "Disable a tool"
	if enable {
		use, short = "enable <id>", "Enable a tool"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  exactArgs(1, "ragterm tools "+use[:len(use)-5]+" t-1"),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool, err := app.Client().ToggleTool(cmd.Context(), args[0], enable)
			if err != nil {
				return err
			}
			return app.emit(cmd, tool, func() {
				fmt.Fprintf(app.Out, "%s %s is %s\n", SuccessStyle.Render("[OK]"), tool.Name, enabledLabel(tool.Enabled))
			})
		},
	}
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
