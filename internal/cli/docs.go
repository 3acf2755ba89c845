// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// docs.go - Document management.
//
// Usage:
//
//	ragterm docs list
//	ragterm docs show report.pdf
//	ragterm docs upload report.pdf notes.md [--strategy rename] [--wait]
//	ragterm docs arxiv https://arxiv.org/abs/2401.00001
//	ragterm docs delete report.pdf [--yes]
//	ragterm docs watch ./papers
//
// A duplicate upload offers three choices: keep the existing document,
// upload a renamed copy, or cancel. --strategy answers in advance.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/api"
	"github.com/jeranaias/ragterm/internal/tasks"
	"github.com/jeranaias/ragterm/internal/util"
	"github.com/jeranaias/ragterm/internal/watch"
)

func newDocsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"documents", "doc"},
		Short:   "List, upload and delete documents",
	}
	cmd.AddCommand(
		newDocsListCommand(app),
		newDocsShowCommand(app),
		newDocsUploadCommand(app),
		newDocsArxivCommand(app),
		newDocsDeleteCommand(app),
		newDocsWatchCommand(app),
	)
	return cmd
}

// =============================================================================
// LIST / SHOW
// =============================================================================

func newDocsListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List documents in the workspace",
		Args:    exactArgs(0, "ragterm docs list"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.Workspace(ctx)
			if err != nil {
				return err
			}
			docs, err := app.Client().Documents(ctx, ws)
			if err != nil {
				return err
			}
			return app.emit(cmd, docs, func() {
				if len(docs) == 0 {
					fmt.Fprintln(app.Out, DimStyle.Render("No documents. Upload one with: ragterm docs upload <file>"))
					return
				}
				t := newTable("NAME", "SIZE", "CHUNKS", "STATUS", "UPLOADED")
				for _, d := range docs {
					t.add(d.Name, util.Bytes(d.Size), strconv.Itoa(d.ChunkCount), d.Status, formatTime(d.UploadedAt))
				}
				t.render(app.Out)
				fmt.Fprintln(app.Out, DimStyle.Render(util.Count(len(docs), "document")))
			})
		},
	}
}

func newDocsShowCommand(app *App) *cobra.Command {
	var showContent bool
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show one document",
		Args:  exactArgs(1, "ragterm docs show report.pdf"),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.Client().Document(cmd.Context(), api.NormalizeFilename(args[0]))
			if err != nil {
				return err
			}
			return app.emit(cmd, doc, func() {
				printTitle(app.Out, doc.Name)
				printField(app.Out, "Status", doc.Status)
				printField(app.Out, "Size", util.Bytes(doc.Size))
				printField(app.Out, "Type", doc.ContentType)
				printField(app.Out, "Chunks", strconv.Itoa(doc.ChunkCount))
				if doc.WorkspaceID != "" {
					printField(app.Out, "Workspace", doc.WorkspaceID)
				}
				if doc.Source != "" {
					printField(app.Out, "Source", doc.Source)
				}
				printField(app.Out, "Uploaded", formatTime(doc.UploadedAt))
				if doc.Content == "" {
					return
				}
				fmt.Fprintln(app.Out)
				if showContent {
					fmt.Fprintln(app.Out, doc.Content)
				} else {
					fmt.Fprintln(app.Out, DimStyle.Render(util.Truncate(util.OneLine(doc.Content), 240)))
				}
			})
		},
	}
	cmd.Flags().BoolVar(&showContent, "content", false, "print the full extracted text")
	return cmd
}

// =============================================================================
// UPLOAD
// =============================================================================

type uploadOptions struct {
	strategy string
	wait     bool
}

func (o uploadOptions) parse() (api.Strategy, error) {
	s, ok := api.ParseStrategy(o.strategy)
	if !ok {
		return "", NewValidationErrorWithExample("strategy", o.strategy,
			"must be rename, use_existing or overwrite", "--strategy rename")
	}
	return s, nil
}

func addUploadFlags(cmd *cobra.Command, opts *uploadOptions) {
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "duplicate handling: rename, use_existing or overwrite")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "wait for ingestion to finish")
}

func newDocsUploadCommand(app *App) *cobra.Command {
	var opts uploadOptions
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload files for indexing",
		Args:  minArgs(1, "ragterm docs upload report.pdf"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			strategy, err := opts.parse()
			if err != nil {
				return err
			}
			ws, err := app.Workspace(ctx)
			if err != nil {
				return err
			}

			// Validate every name before sending anything
			for _, path := range args {
				if err := api.ValidateFilename(api.NormalizeFilename(filepath.Base(path))); err != nil {
					return NewValidationError("filename", filepath.Base(path), err.Error())
				}
			}

			var results []*api.UploadResult
			for _, path := range args {
				name := api.NormalizeFilename(filepath.Base(path))
				res, err := app.uploadResolving(name, strategy, func(s api.Strategy) (*api.UploadResult, error) {
					f, err := os.Open(path)
					if err != nil {
						return nil, err
					}
					defer f.Close()
					return app.Client().Upload(ctx, api.UploadRequest{Filename: name, Reader: f, WorkspaceID: ws, Strategy: s})
				})
				if err != nil {
					return err
				}
				if res == nil {
					continue
				}
				results = append(results, res)
				if opts.wait {
					if err := app.waitForTask(ctx, res); err != nil {
						return err
					}
				}
			}
			return app.emit(cmd, results, func() {})
		},
	}
	addUploadFlags(cmd, &opts)
	return cmd
}

func newDocsArxivCommand(app *App) *cobra.Command {
	var opts uploadOptions
	cmd := &cobra.Command{
		Use:   "arxiv <url>",
		Short: "Fetch and index an arXiv paper",
		Args:  exactArgs(1, "ragterm docs arxiv https://arxiv.org/abs/2401.00001"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			strategy, err := opts.parse()
			if err != nil {
				return err
			}
			ws, err := app.Workspace(ctx)
			if err != nil {
				return err
			}
			res, err := app.uploadResolving(args[0], strategy, func(s api.Strategy) (*api.UploadResult, error) {
				return app.Client().UploadArxiv(ctx, args[0], ws, s)
			})
			if err != nil || res == nil {
				return err
			}
			if opts.wait {
				if err := app.waitForTask(ctx, res); err != nil {
					return err
				}
			}
			return app.emit(cmd, res, func() {})
		},
	}
	addUploadFlags(cmd, &opts)
	return cmd
}

// uploadResolving runs upload and, on DUPLICATE_DETECTED without a preset
// strategy, asks how to proceed. A nil result with a nil error means the
// user canceled.
func (a *App) uploadResolving(name string, strategy api.Strategy, upload func(api.Strategy) (*api.UploadResult, error)) (*api.UploadResult, error) {
	res, err := upload(strategy)
	if err == nil {
		a.printUploaded(name, res)
		return res, nil
	}
	if !api.IsDuplicate(err) || strategy != api.StrategyNone {
		return nil, err
	}

	var dup api.DuplicateInfo
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		_ = apiErr.DecodeData(&dup)
	}
	if a.flags.json || !a.interactive() {
		return nil, &CommandError{
			Command: "upload",
			Reason:  fmt.Sprintf("%s is a duplicate; rerun with --strategy rename, use_existing or overwrite", name),
			Err:     err,
		}
	}

	existing := name
	if dup.Existing != nil && dup.Existing.Name != "" {
		existing = dup.Existing.Name
	}
	copyLabel := "Upload as a renamed copy"
	if dup.SuggestedAs != "" {
		copyLabel += " (" + dup.SuggestedAs + ")"
	}
	question := fmt.Sprintf("%s matches existing document %s.", name, existing)
	if dup.MatchedBy == "content" {
		question = fmt.Sprintf("%s has the same content as %s.", name, existing)
	}

	switch a.PromptChoice(question, []string{"Use the existing document", copyLabel, "Cancel"}) {
	case 0:
		strategy = api.StrategyUseExisting
	case 1:
		strategy = api.StrategyRename
	default:
		a.ShowCancellationMessage()
		return nil, nil
	}

	res, err = upload(strategy)
	if err != nil {
		return nil, err
	}
	a.printUploaded(name, res)
	return res, nil
}

func (a *App) printUploaded(name string, res *api.UploadResult) {
	stored := res.Filename
	if stored == "" {
		stored = name
	}
	switch {
	case res.Status == "existing":
		a.printf("%s Using existing %s\n", SuccessStyle.Render("[OK]"), stored)
	case res.TaskID != "":
		a.printf("%s Queued %s %s\n", SuccessStyle.Render("[OK]"), stored, DimStyle.Render("(task "+res.TaskID+")"))
	default:
		a.printf("%s Uploaded %s\n", SuccessStyle.Render("[OK]"), stored)
	}
}

// waitForTask polls an upload's ingestion task until it finishes.
func (a *App) waitForTask(ctx context.Context, res *api.UploadResult) error {
	if res.TaskID == "" {
		return nil
	}
	ticker := time.NewTicker(a.Config().Tasks.PollInterval.Duration)
	defer ticker.Stop()

	for {
		t, err := a.Client().Task(ctx, res.TaskID)
		if err != nil {
			return err
		}
		switch t.Status {
		case tasks.StatusCompleted:
			a.printf("%s Indexed %s\n", SuccessStyle.Render("[OK]"), res.Filename)
			return nil
		case tasks.StatusFailed, tasks.StatusCanceled:
			reason := t.Message
			if reason == "" {
				reason = string(t.Status)
			}
			return &CommandError{Command: "upload", Reason: fmt.Sprintf("ingestion of %s %s: %s", res.Filename, t.Status, reason)}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// =============================================================================
// DELETE
// =============================================================================

func newDocsDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a document",
		Args:    exactArgs(1, "ragterm docs delete report.pdf"),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := api.NormalizeFilename(args[0])
			ok, err := app.RequireConfirmation("delete " + name)
			if err != nil {
				return err
			}
			if !ok {
				app.ShowCancellationMessage()
				return nil
			}
			if err := app.Client().DeleteDocument(cmd.Context(), name); err != nil {
				return err
			}
			return app.emit(cmd, map[string]string{"deleted": name}, func() {
				fmt.Fprintf(app.Out, "%s Deleted %s\n", SuccessStyle.Render("[OK]"), name)
			})
		},
	}
}

// =============================================================================
// WATCH
// =============================================================================

func newDocsWatchCommand(app *App) *cobra.Command {
	var strategyFlag string
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Upload files as they appear in a folder",
		Args:  exactArgs(1, "ragterm docs watch ./papers"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config()
			if strategyFlag == "" {
				strategyFlag = cfg.Watch.Strategy
			}
			strategy, err := uploadOptions{strategy: strategyFlag}.parse()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			ws, err := app.Workspace(ctx)
			if err != nil {
				return err
			}

			w, err := watch.New(args[0], app.Client(), watch.Options{
				Debounce:    cfg.Watch.Debounce.Duration,
				Strategy:    strategy,
				WorkspaceID: ws,
				Logger:      app.log,
			})
			if err != nil {
				return NewValidationError("directory", args[0], err.Error())
			}
			if err := w.Start(ctx); err != nil {
				w.Close()
				return err
			}
			defer w.Close()

			app.printf("%s %s %s\n", InfoStyle.Render("Watching"), args[0], DimStyle.Render("(Ctrl-C to stop)"))
			for {
				select {
				case <-ctx.Done():
					return nil
				case res, ok := <-w.Results():
					if !ok {
						return nil
					}
					app.printWatchResult(cmd, res)
				}
			}
		},
	}
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "duplicate handling (default from [watch] strategy)")
	return cmd
}

func (a *App) printWatchResult(cmd *cobra.Command, res watch.Result) {
	name := filepath.Base(res.Path)
	if a.flags.json {
		if res.Err != nil {
			_ = NewJSONErrorResponse(commandName(cmd), fmt.Errorf("%s: %w", name, res.Err)).WriteCompact(a.Out)
			return
		}
		_ = NewJSONResponse(commandName(cmd), res.Upload).WriteCompact(a.Out)
		return
	}

	if res.Err != nil {
		title, detail := FormatError(res.Err)
		if detail == "" || title == "Error" {
			detail = res.Err.Error()
		}
		fmt.Fprintf(a.Out, "%s %s: %s\n", WarningStyle.Render("[SKIP]"), name, strings.TrimSpace(detail))
		return
	}
	a.printUploaded(name, res.Upload)
}
