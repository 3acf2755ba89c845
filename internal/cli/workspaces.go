// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/api"
	"github.com/jeranaias/ragterm/internal/util"
)

func newWorkspacesCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspaces",
		Aliases: []string{"workspace", "ws"},
		Short:   "Manage workspaces",
	}

	var description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a workspace",
		Args:  exactArgs(1, `ragterm workspaces create "Research"`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.Client().CreateWorkspace(cmd.Context(), api.WorkspaceInput{Name: args[0], Description: description})
			if err != nil {
				return err
			}
			return app.emit(cmd, ws, func() {
				fmt.Fprintf(app.Out, "%s Created workspace %s %s\n", SuccessStyle.Render("[OK]"), ws.Name, DimStyle.Render("("+ws.ID+")"))
			})
		},
	}
	create.Flags().StringVar(&description, "description", "", "workspace description")

	cmd.AddCommand(
		newWorkspacesListCommand(app),
		create,
		newWorkspacesRenameCommand(app),
		newWorkspacesDeleteCommand(app),
		newWorkspacesShowCommand(app),
		newWorkspacesUseCommand(app),
		newWorkspacesShareCommand(app),
	)
	return cmd
}

// resolveWorkspace finds a workspace by id, or by case-insensitive name.
func (a *App) resolveWorkspace(ctx context.Context, ref string) (*api.Workspace, error) {
	list, err := a.Client().Workspaces(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == ref {
			return &list[i], nil
		}
	}
	for i := range list {
		if strings.EqualFold(list[i].Name, ref) {
			return &list[i], nil
		}
	}
	return nil, &CommandError{Command: "workspaces", Reason: fmt.Sprintf("no workspace %q", ref), Err: api.ErrNotFound}
}

func newWorkspacesListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List workspaces",
		Args:    exactArgs(0, "ragterm workspaces list"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			list, err := app.Client().Workspaces(ctx)
			if err != nil {
				return err
			}
			current, err := app.Workspace(ctx)
			if err != nil {
				return err
			}
			return app.emit(cmd, list, func() {
				if len(list) == 0 {
					fmt.Fprintln(app.Out, DimStyle.Render("No workspaces. Create one with: ragterm workspaces create <name>"))
					return
				}
				t := newTable("", "ID", "NAME", "DESCRIPTION", "UPDATED")
				for _, w := range list {
					mark := ""
					if w.ID == current {
						mark = HighlightStyle.Render("*")
					}
					t.add(mark, w.ID, w.Name, w.Description, formatTime(w.UpdatedAt))
				}
				t.render(app.Out)
			})
		},
	}
}

func newWorkspacesRenameCommand(app *App) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "rename <workspace> <new-name>",
		Short: "Rename a workspace",
		Args:  exactArgs(2, `ragterm workspaces rename Research "Research 2025"`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.resolveWorkspace(ctx, args[0])
			if err != nil {
				return err
			}
			in := api.WorkspaceInput{Name: args[1], Description: ws.Description}
			if cmd.Flags().Changed("description") {
				in.Description = description
			}
			updated, err := app.Client().UpdateWorkspace(ctx, ws.ID, in)
			if err != nil {
				return err
			}
			return app.emit(cmd, updated, func() {
				fmt.Fprintf(app.Out, "%s Renamed %s to %s\n", SuccessStyle.Render("[OK]"), ws.Name, updated.Name)
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "also replace the description")
	return cmd
}

func newWorkspacesDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <workspace>",
		Aliases: []string{"rm"},
		Short:   "Delete a workspace with its documents and threads",
		Args:    exactArgs(1, "ragterm workspaces delete Research"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.resolveWorkspace(ctx, args[0])
			if err != nil {
				return err
			}
			ok, err := app.RequireConfirmation(fmt.Sprintf("delete workspace %s and everything in it", ws.Name))
			if err != nil {
				return err
			}
			if !ok {
				app.ShowCancellationMessage()
				return nil
			}
			if err := app.Client().DeleteWorkspace(ctx, ws.ID); err != nil {
				return err
			}

			store, err := app.State(ctx)
			if err != nil {
				return err
			}
			if store.CurrentWorkspace() == ws.ID {
				if err := store.SetCurrentWorkspace(""); err != nil {
					return err
				}
			}
			if err := store.ClearThread(ws.ID); err != nil {
				return err
			}
			return app.emit(cmd, map[string]string{"deleted": ws.ID}, func() {
				fmt.Fprintf(app.Out, "%s Deleted workspace %s\n", SuccessStyle.Render("[OK]"), ws.Name)
			})
		},
	}
}

func newWorkspacesShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show [workspace]",
		Short: "Show a workspace with its documents and threads",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var id string
			if len(args) == 1 {
				ws, err := app.resolveWorkspace(ctx, args[0])
				if err != nil {
					return err
				}
				id = ws.ID
			} else {
				current, err := app.Workspace(ctx)
				if err != nil {
					return err
				}
				if current == "" {
					return ErrMissingArgument("workspace", "ragterm workspaces show Research")
				}
				id = current
			}

			details, err := app.Client().WorkspaceDetails(ctx, id)
			if err != nil {
				return err
			}
			return app.emit(cmd, details, func() {
				printTitle(app.Out, details.Name)
				printField(app.Out, "ID", details.ID)
				if details.Description != "" {
					printField(app.Out, "Description", details.Description)
				}
				printField(app.Out, "Documents", util.Count(details.DocumentCount, "document"))
				printField(app.Out, "Threads", util.Count(details.ThreadCount, "thread"))
				printField(app.Out, "Created", formatTime(details.CreatedAt))
				for _, d := range details.Documents {
					fmt.Fprintf(app.Out, "  %s %s\n", DimStyle.Render("doc"), d.Name)
				}
				for _, th := range details.Threads {
					fmt.Fprintf(app.Out, "  %s %s %s\n", DimStyle.Render("thread"), th.ID, th.Title)
				}
			})
		},
	}
}

func newWorkspacesUseCommand(app *App) *cobra.Command {
	var none bool
	cmd := &cobra.Command{
		Use:   "use <workspace>",
		Short: "Make a workspace the current one",
		Args: func(cmd *cobra.Command, args []string) error {
			if none {
				return exactArgs(0, "ragterm workspaces use --none")(cmd, args)
			}
			return exactArgs(1, "ragterm workspaces use Research")(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := app.State(ctx)
			if err != nil {
				return err
			}
			if none {
				if err := store.SetCurrentWorkspace(""); err != nil {
					return err
				}
				return app.emit(cmd, map[string]string{"current": ""}, func() {
					fmt.Fprintf(app.Out, "%s Using the default workspace\n", SuccessStyle.Render("[OK]"))
				})
			}

			ws, err := app.resolveWorkspace(ctx, args[0])
			if err != nil {
				return err
			}
			if err := store.SetCurrentWorkspace(ws.ID); err != nil {
				return err
			}
			return app.emit(cmd, ws, func() {
				fmt.Fprintf(app.Out, "%s Using workspace %s\n", SuccessStyle.Render("[OK]"), ws.Name)
			})
		},
	}
	cmd.Flags().BoolVar(&none, "none", false, "go back to the default workspace")
	return cmd
}

func newWorkspacesShareCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "share <workspace> <document>",
		Short: "Share a document into another workspace",
		Args:  exactArgs(2, "ragterm workspaces share Research report.pdf"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.resolveWorkspace(ctx, args[0])
			if err != nil {
				return err
			}
			name := api.NormalizeFilename(args[1])
			if err := app.Client().ShareDocument(ctx, ws.ID, name); err != nil {
				return err
			}
			return app.emit(cmd, map[string]string{"workspace_id": ws.ID, "document": name}, func() {
				fmt.Fprintf(app.Out, "%s Shared %s with %s\n", SuccessStyle.Render("[OK]"), name, ws.Name)
			})
		},
	}
}
