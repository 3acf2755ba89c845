// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL.
//
// Usage:
//
//	ragterm chat
//	ragterm chat --new
//
// Slash commands:
//
//	/new           start a fresh thread
//	/thread <id>   switch to an existing thread
//	/threads       list threads of the workspace
//	/cite <n>      show source [n] of the last answer
//	/sources       list the sources of the last answer
//	/reasoning     toggle reasoning display
//	/tasks         show background task status
//	/help          show this list
//	/quit          exit
//
// Ctrl-C while a reply streams cancels it and keeps what arrived.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/chat"
	"github.com/jeranaias/ragterm/internal/config"
	"github.com/jeranaias/ragterm/internal/tasks"
	"github.com/jeranaias/ragterm/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader reads one line of REPL input.
type lineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with history loaded from the config dir.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// plainReader reads lines from a non-terminal input such as a pipe.
type plainReader struct {
	app *App
}

func (p plainReader) ReadInput(prompt string) (string, error) {
	fmt.Fprint(p.app.Out, prompt)
	return p.app.readLine()
}

func (p plainReader) Close() {}

// =============================================================================
// CHAT COMMAND
// =============================================================================

func newChatCommand(app *App) *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with history and slash commands",
		Args:  exactArgs(0, "ragterm chat"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runChat(cmd.Context(), fresh)
		},
	}
	cmd.Flags().BoolVar(&fresh, "new", false, "start a fresh thread instead of resuming")
	return cmd
}

// chatREPL is one running chat session.
type chatREPL struct {
	app     *App
	session *chat.Session
	out     io.Writer
}

func (a *App) runChat(ctx context.Context, fresh bool) error {
	if a.flags.json {
		return NewValidationError("mode", "--json", "chat is interactive; use ask --json")
	}

	session, err := a.NewSession(ctx)
	if err != nil {
		return err
	}
	r := &chatREPL{app: a, session: session, out: a.Out}

	if fresh {
		if _, err := session.NewThread(); err != nil {
			a.log.Warn("could not reset thread", "err", err)
		}
	} else if err := session.Restore(ctx); err != nil {
		r.printError(err)
	}
	r.printWelcome()

	var input lineReader = plainReader{app: a}
	if isTerminal(a.In) && isTerminal(a.Out) {
		input = NewChatCLI()
	}
	defer input.Close()

	// Ctrl-C outside the prompt cancels the streaming reply
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if session.Loading() {
				session.Cancel()
			}
		}
	}()

	for {
		line, err := input.ReadInput(PromptStyle.Render("ragterm> "))
		if err != nil {
			// Ctrl-C at the prompt, Ctrl-D or end of input
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				a.log.Debug("input closed", "err", err)
			}
			fmt.Fprintln(r.out)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if !r.handleSlashCommand(ctx, line) {
				return nil
			}
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		r.submit(ctx, line)
	}
}

// =============================================================================
// TURNS
// =============================================================================

func (r *chatREPL) submit(ctx context.Context, text string) {
	conv := r.session.Conversation()
	printer := followConversation(r.out, conv, true)
	err := r.session.Submit(ctx, text)

	last, ok := conv.Last()
	if ok && !last.IsUser() {
		printer.stop(&last)
		if r.session.ShowReasoning() {
			printReasoning(r.out, last.ReasoningSteps)
		}
		printSources(r.out, last.Sources)
	} else {
		printer.stop(nil)
	}

	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(r.out, WarningStyle.Render("[Cancelled]"))
		return
	}
	r.printError(err)
}

func (r *chatREPL) printError(err error) {
	title, detail := FormatError(err)
	if detail == "" {
		fmt.Fprintf(r.app.Err, "%s %s\n", ErrorStyle.Render("[Error]"), title)
		return
	}
	fmt.Fprintf(r.app.Err, "%s %s: %s\n", ErrorStyle.Render("[Error]"), title, detail)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand runs one slash command and reports whether the REPL
// should continue.
func (r *chatREPL) handleSlashCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/exit", "/q":
		return false

	case "/help", "/?":
		r.printHelp()

	case "/new":
		id, err := r.session.NewThread()
		if err != nil {
			r.printError(err)
			break
		}
		fmt.Fprintln(r.out, DimStyle.Render("New thread "+id))

	case "/thread":
		if len(args) != 1 {
			fmt.Fprintln(r.out, WarningStyle.Render("Usage: /thread <id>"))
			break
		}
		if err := r.session.SwitchThread(ctx, args[0]); err != nil {
			r.printError(err)
			break
		}
		r.printTranscript()

	case "/threads":
		threads, err := r.app.Client().Threads(ctx, r.session.WorkspaceID())
		if err != nil {
			r.printError(err)
			break
		}
		t := newTable("", "ID", "TITLE", "UPDATED")
		for _, th := range threads {
			mark := ""
			if th.ID == r.session.ThreadID() {
				mark = "*"
			}
			t.add(mark, th.ID, th.Title, formatTime(th.UpdatedAt))
		}
		t.render(r.out)

	case "/cite", "/source":
		n, err := citationIndex(args)
		if err != nil {
			fmt.Fprintln(r.out, WarningStyle.Render("Usage: /cite <n>"))
			break
		}
		src, ok := r.session.LastCitation(n)
		printCitation(r.out, n, src, ok)

	case "/sources":
		last, ok := r.session.Conversation().LastAssistant()
		if !ok || len(last.Sources) == 0 {
			fmt.Fprintln(r.out, DimStyle.Render("No sources."))
			break
		}
		printSources(r.out, last.Sources)

	case "/reasoning":
		if r.session.ToggleReasoning() {
			fmt.Fprintln(r.out, DimStyle.Render("Reasoning shown."))
		} else {
			fmt.Fprintln(r.out, DimStyle.Render("Reasoning hidden."))
		}

	case "/tasks":
		poller, err := r.app.NewPoller(ctx)
		if err != nil {
			r.printError(err)
			break
		}
		poller.Refresh(ctx)
		printTaskViews(r.out, poller.Views())

	default:
		fmt.Fprintf(r.out, "%s %s (try /help)\n", WarningStyle.Render("Unknown command:"), name)
	}
	return true
}

func citationIndex(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("want one index")
	}
	n, err := strconv.Atoi(strings.Trim(args[0], "[]"))
	if err != nil || n < 1 {
		return 0, errors.New("index must be a positive number")
	}
	return n, nil
}

// =============================================================================
// DISPLAY
// =============================================================================

func (r *chatREPL) printWelcome() {
	fmt.Fprintln(r.out, TitleStyle.Render("ragterm chat"))
	ws := r.session.WorkspaceID()
	if ws == "" {
		ws = "default"
	}
	printField(r.out, "Server", r.app.Client().BaseURL())
	printField(r.out, "Workspace", ws)
	if n := r.session.Conversation().Len(); n > 0 {
		printField(r.out, "Thread", fmt.Sprintf("%s (%s)", r.session.ThreadID(), util.Count(n, "message")))
		fmt.Fprintln(r.out)
		r.printTranscript()
	}
	fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Fprintln(r.out)
}

func (r *chatREPL) printTranscript() {
	for _, msg := range r.session.Conversation().Messages() {
		printMessage(r.out, msg, r.session.ShowReasoning())
	}
}

func (r *chatREPL) printHelp() {
	fmt.Fprintln(r.out, SectionStyle.Render("Commands"))
	for _, c := range [][2]string{
		{"/new", "start a fresh thread"},
		{"/thread <id>", "switch to an existing thread"},
		{"/threads", "list threads of the workspace"},
		{"/cite <n>", "show source [n] of the last answer"},
		{"/sources", "list the sources of the last answer"},
		{"/reasoning", "toggle reasoning display"},
		{"/tasks", "show background task status"},
		{"/quit", "exit"},
	} {
		fmt.Fprintf(r.out, "  %s%s\n", RenderLabel(c[0], 16), c[1])
	}
}

// printTaskViews writes the three task views with a summary header.
func printTaskViews(w io.Writer, v tasks.Views) {
	fmt.Fprintln(w, SectionStyle.Render("Tasks: "+tasks.Summary(v)))
	sections := []struct {
		title string
		list  []tasks.Task
	}{
		{"Active", v.Active},
		{"Recently completed", v.RecentlyCompleted},
		{"Failed", v.Failed},
	}
	for _, s := range sections {
		if len(s.list) == 0 {
			continue
		}
		fmt.Fprintln(w, DimStyle.Render(s.title))
		for _, t := range s.list {
			line := fmt.Sprintf("  %s %s %s", RenderStatus(string(t.Status)), t.ID, t.Label())
			if t.Status.IsActive() {
				line += fmt.Sprintf(" (%d%%)", t.ClampedProgress())
			}
			if t.ErrorCode != "" {
				line += " " + ErrorStyle.Render(t.ErrorCode)
			}
			fmt.Fprintln(w, line)
		}
	}
}
