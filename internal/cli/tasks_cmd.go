// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/tasks"
)

func newTasksCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Inspect and control background ingestion tasks",
	}
	cmd.AddCommand(
		newTasksListCommand(app),
		newTasksWatchCommand(app),
		newTaskActionCommand(app, "retry", "Retry a failed task", func(ctx context.Context, p *tasks.Poller, id string) error {
			return p.Retry(ctx, id)
		}),
		newTaskActionCommand(app, "cancel", "Cancel a running task", func(ctx context.Context, p *tasks.Poller, id string) error {
			return p.Cancel(ctx, id)
		}),
		newTaskActionCommand(app, "dismiss", "Hide a task from every view", func(_ context.Context, p *tasks.Poller, id string) error {
			return p.Dismiss(id)
		}),
	)
	return cmd
}

func newTasksListCommand(app *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show active, recently completed and failed tasks",
		Args:    exactArgs(0, "ragterm tasks list"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := app.Config()
			list, err := app.Client().ListTasks(ctx, cfg.Tasks.Type)
			if err != nil {
				return err
			}
			if all {
				return app.emit(cmd, list, func() {
					t := newTable("ID", "STATUS", "TASK", "PROGRESS", "UPDATED")
					for _, task := range list {
						t.add(task.ID, string(task.Status), task.Label(), fmt.Sprintf("%d%%", task.ClampedProgress()), formatTime(task.UpdatedAt))
					}
					t.render(app.Out)
				})
			}

			store, err := app.State(ctx)
			if err != nil {
				return err
			}
			dismissed := make(map[string]bool)
			for _, id := range store.Dismissed() {
				dismissed[id] = true
			}
			views := tasks.Partition(list, dismissed, time.Now(), cfg.Tasks.CompletedWindow.Duration)
			return app.emit(cmd, views, func() {
				printTaskViews(app.Out, views)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every task, including dismissed and canceled")
	return cmd
}

func newTasksWatchCommand(app *App) *cobra.Command {
	var untilIdle bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow task progress until interrupted",
		Args:  exactArgs(0, "ragterm tasks watch --until-idle"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			poller, err := app.NewPoller(ctx)
			if err != nil {
				return err
			}
			updates, unsub := poller.Subscribe()
			defer unsub()
			poller.Start(ctx)
			defer poller.Stop()

			last := ""
			for {
				select {
				case <-ctx.Done():
					return nil
				case n := <-poller.Notifications():
					app.printNotification(cmd, n)
				case v, ok := <-updates:
					if !ok {
						return nil
					}
					summary := tasks.Summary(v)
					if summary != last {
						last = summary
						app.printf("%s %s\n", DimStyle.Render(time.Now().Format("15:04:05")), summary)
					}
					if untilIdle && !v.HasActiveWork {
						app.drainNotifications(cmd, poller)
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().BoolVar(&untilIdle, "until-idle", false, "exit once no task is pending or processing")
	return cmd
}

func (a *App) printNotification(cmd *cobra.Command, n tasks.Notification) {
	if a.flags.json {
		_ = NewJSONResponse(commandName(cmd), n).WriteCompact(a.Out)
		return
	}
	tag := SuccessStyle.Render("[DONE]")
	if n.Level == tasks.LevelError {
		tag = ErrorStyle.Render("[FAIL]")
	}
	line := fmt.Sprintf("%s %s: %s", tag, n.Title, n.Message)
	if n.ErrorCode != "" {
		line += " " + DimStyle.Render("("+n.ErrorCode+")")
	}
	fmt.Fprintln(a.Out, line)
}

// drainNotifications prints whatever the final poll queued.
func (a *App) drainNotifications(cmd *cobra.Command, p *tasks.Poller) {
	for {
		select {
		case n := <-p.Notifications():
			a.printNotification(cmd, n)
		default:
			return
		}
	}
}

func newTaskActionCommand(app *App, verb, short string, action func(context.Context, *tasks.Poller, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: short,
		Args:  exactArgs(1, "ragterm tasks "+verb+" 7d1e..."),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			poller, err := app.NewPoller(ctx)
			if err != nil {
				return err
			}
			if err := action(ctx, poller, args[0]); err != nil {
				return err
			}
			return app.emit(cmd, map[string]string{"task_id": args[0], "action": verb}, func() {
				fmt.Fprintf(app.Out, "%s %s %s\n", SuccessStyle.Render("[OK]"), pastTense(verb), args[0])
			})
		},
	}
}

func pastTense(verb string) string {
	switch verb {
	case "retry":
		return "Retried"
	case "cancel":
		return "Canceled"
	case "dismiss":
		return "Dismissed"
	}
	return verb
}
