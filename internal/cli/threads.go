// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/export"
)

func newThreadsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "threads",
		Aliases: []string{"thread"},
		Short:   "List, rename, delete and export chat threads",
	}
	cmd.AddCommand(
		newThreadsListCommand(app),
		newThreadsRenameCommand(app),
		newThreadsDeleteCommand(app),
		newThreadsHistoryCommand(app),
		newThreadsExportCommand(app),
	)
	return cmd
}

// threadArg returns the explicit thread id, or the remembered thread of the
// workspace when none was given.
func (a *App) threadArg(ctx context.Context, args []string, example string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	ws, err := a.Workspace(ctx)
	if err != nil {
		return "", err
	}
	store, err := a.State(ctx)
	if err != nil {
		return "", err
	}
	if id := store.ThreadID(ws); id != "" {
		return id, nil
	}
	return "", ErrMissingArgument("thread", example)
}

func newThreadsListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List threads in the workspace",
		Args:    exactArgs(0, "ragterm threads list"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.Workspace(ctx)
			if err != nil {
				return err
			}
			store, err := app.State(ctx)
			if err != nil {
				return err
			}
			threads, err := app.Client().Threads(ctx, ws)
			if err != nil {
				return err
			}
			current := store.ThreadID(ws)
			return app.emit(cmd, threads, func() {
				if len(threads) == 0 {
					fmt.Fprintln(app.Out, DimStyle.Render("No threads yet. Start one with: ragterm chat"))
					return
				}
				t := newTable("", "ID", "TITLE", "MESSAGES", "UPDATED")
				for _, th := range threads {
					mark := ""
					if th.ID == current {
						mark = HighlightStyle.Render("*")
					}
					t.add(mark, th.ID, th.Title, strconv.Itoa(th.MessageCount), formatTime(th.UpdatedAt))
				}
				t.render(app.Out)
			})
		},
	}
}

func newThreadsRenameCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a thread",
		Args:  exactArgs(2, `ragterm threads rename 1f0c... "Budget questions"`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Client().RenameThread(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return app.emit(cmd, map[string]string{"id": args[0], "title": args[1]}, func() {
				fmt.Fprintf(app.Out, "%s Renamed thread to %q\n", SuccessStyle.Render("[OK]"), args[1])
			})
		},
	}
}

func newThreadsDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a thread",
		Args:    exactArgs(1, "ragterm threads delete 1f0c..."),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ok, err := app.RequireConfirmation("delete thread " + args[0])
			if err != nil {
				return err
			}
			if !ok {
				app.ShowCancellationMessage()
				return nil
			}
			if err := app.Client().DeleteThread(ctx, args[0]); err != nil {
				return err
			}

			ws, err := app.Workspace(ctx)
			if err != nil {
				return err
			}
			store, err := app.State(ctx)
			if err != nil {
				return err
			}
			if store.ThreadID(ws) == args[0] {
				if err := store.ClearThread(ws); err != nil {
					return err
				}
			}
			return app.emit(cmd, map[string]string{"deleted": args[0]}, func() {
				fmt.Fprintf(app.Out, "%s Deleted thread %s\n", SuccessStyle.Render("[OK]"), args[0])
			})
		},
	}
}

func newThreadsHistoryCommand(app *App) *cobra.Command {
	var reasoning bool
	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "Print a thread's messages (default: the remembered thread)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := app.threadArg(ctx, args, "ragterm threads history 1f0c...")
			if err != nil {
				return err
			}
			msgs, err := app.Client().History(ctx, id)
			if err != nil {
				return err
			}
			return app.emit(cmd, msgs, func() {
				for _, m := range msgs {
					printMessage(app.Out, m, reasoning)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&reasoning, "reasoning", false, "include reasoning steps")
	return cmd
}

func newThreadsExportCommand(app *App) *cobra.Command {
	var (
		format      string
		dir         string
		toStdout    bool
		noReasoning bool
		noSources   bool
	)
	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export a thread to Markdown, JSON or YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			exporter, err := export.ForFormat(format, export.Options{
				IncludeReasoning: !noReasoning,
				IncludeSources:   !noSources,
				IncludeTools:     true,
			})
			if err != nil {
				return NewValidationError("format", format, err.Error())
			}

			id, err := app.threadArg(ctx, args, "ragterm threads export 1f0c... --format md")
			if err != nil {
				return err
			}
			transcript, err := app.transcript(ctx, id)
			if err != nil {
				return err
			}

			if toStdout {
				return exporter.Export(app.Out, transcript)
			}
			path, err := export.ExportToFile(transcript, exporter, dir)
			if err != nil {
				return err
			}
			return app.emit(cmd, map[string]string{"path": path, "format": exporter.MimeType()}, func() {
				fmt.Fprintf(app.Out, "%s Exported to %s\n", SuccessStyle.Render("[OK]"), path)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "markdown, json or yaml")
	cmd.Flags().StringVarP(&dir, "output", "o", ".", "directory to write into")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "write to stdout instead of a file")
	cmd.Flags().BoolVar(&noReasoning, "no-reasoning", false, "omit reasoning steps")
	cmd.Flags().BoolVar(&noSources, "no-sources", false, "omit source lists")
	return cmd
}

// transcript loads a thread's history and title for export.
func (a *App) transcript(ctx context.Context, id string) (export.Transcript, error) {
	ws, err := a.Workspace(ctx)
	if err != nil {
		return export.Transcript{}, err
	}
	msgs, err := a.Client().History(ctx, id)
	if err != nil {
		return export.Transcript{}, err
	}

	t := export.Transcript{ThreadID: id, WorkspaceID: ws, ExportedAt: time.Now(), Messages: msgs}
	threads, err := a.Client().Threads(ctx, ws)
	if err != nil {
		a.log.Debug("thread list unavailable for export title", "err", err)
		return t, nil
	}
	for _, th := range threads {
		if th.ID == id {
			t.Title = th.Title
			if th.WorkspaceID != "" {
				t.WorkspaceID = th.WorkspaceID
			}
			break
		}
	}
	return t, nil
}
