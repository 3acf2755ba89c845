// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/api"
	"github.com/jeranaias/ragterm/internal/util"
)

func newSearchCommand(app *App) *cobra.Command {
	var (
		everywhere  bool
		recent      bool
		clearRecent bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search documents, workspaces and threads",
		Example: `  ragterm search quarterly budget
  ragterm search --recent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := app.State(ctx)
			if err != nil {
				return err
			}

			switch {
			case clearRecent:
				if err := store.ClearRecentSearches(); err != nil {
					return err
				}
				return app.emit(cmd, map[string]bool{"cleared": true}, func() {
					fmt.Fprintf(app.Out, "%s Cleared recent searches\n", SuccessStyle.Render("[OK]"))
				})
			case recent:
				list := store.RecentSearches()
				return app.emit(cmd, list, func() {
					if len(list) == 0 {
						fmt.Fprintln(app.Out, DimStyle.Render("No recent searches."))
						return
					}
					for _, q := range list {
						fmt.Fprintln(app.Out, q)
					}
				})
			}

			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return ErrMissingArgument("query", "ragterm search quarterly budget")
			}

			ws := ""
			if !everywhere {
				if ws, err = app.Workspace(ctx); err != nil {
					return err
				}
			}
			results, err := app.Client().Search(ctx, query, ws)
			if err != nil {
				return err
			}
			if err := store.AddRecentSearch(query); err != nil {
				app.log.Warn("could not save recent search", "err", err)
			}
			return app.emit(cmd, results, func() {
				printSearchResults(app, results)
			})
		},
	}
	cmd.Flags().BoolVar(&everywhere, "all-workspaces", false, "search across every workspace")
	cmd.Flags().BoolVar(&recent, "recent", false, "list recent searches")
	cmd.Flags().BoolVar(&clearRecent, "clear-recent", false, "forget recent searches")
	return cmd
}

func printSearchResults(app *App, r *api.SearchResults) {
	if r.Empty() {
		fmt.Fprintln(app.Out, DimStyle.Render("No matches."))
		return
	}
	if len(r.Documents) > 0 {
		fmt.Fprintln(app.Out, SectionStyle.Render(util.Count(len(r.Documents), "document")))
		for _, d := range r.Documents {
			fmt.Fprintf(app.Out, "  %s %s\n", d.Name, DimStyle.Render(util.Bytes(d.Size)))
		}
	}
	if len(r.Workspaces) > 0 {
		fmt.Fprintln(app.Out, SectionStyle.Render(util.Count(len(r.Workspaces), "workspace")))
		for _, w := range r.Workspaces {
			fmt.Fprintf(app.Out, "  %s %s\n", w.Name, DimStyle.Render(w.ID))
		}
	}
	if len(r.Threads) > 0 {
		fmt.Fprintln(app.Out, SectionStyle.Render(util.Count(len(r.Threads), "thread")))
		for _, th := range r.Threads {
			fmt.Fprintf(app.Out, "  %s %s\n", th.Title, DimStyle.Render(th.ID))
		}
	}
}
