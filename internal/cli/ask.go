// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot questions.
//
// Usage:
//
//	ragterm ask "What changed in the Q3 budget?"
//	ragterm ask --continue "And in Q4?"
//	ragterm ask --thread 1f0c... "Summarize the thread"
//
// On a terminal the answer is rendered as markdown once it is complete.
// Otherwise deltas are written as they arrive.

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/model"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// renderMarkdown renders content wrapped to width. Content is returned
// unchanged when glamour fails.
func renderMarkdown(content string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// STREAM PRINTER
// =============================================================================

// streamPrinter follows a conversation and writes the new part of the
// in-progress assistant message as it grows. Updates may be dropped under
// load; flush catches up from the final message.
type streamPrinter struct {
	w        io.Writer
	msgID    string
	printed  int
	tools    int
	started  bool
	changes  <-chan model.Change
	unsub    func()
	done     chan struct{}
	showTool bool
}

func followConversation(w io.Writer, conv *model.Conversation, showTools bool) *streamPrinter {
	changes, unsub := conv.Subscribe()
	p := &streamPrinter{w: w, changes: changes, unsub: unsub, done: make(chan struct{}), showTool: showTools}
	go p.run()
	return p
}

func (p *streamPrinter) run() {
	defer close(p.done)
	for change := range p.changes {
		if change.Kind == model.ChangeClear || change.Message.IsUser() {
			continue
		}
		p.write(change.Message)
	}
}

func (p *streamPrinter) write(msg model.Message) {
	if p.msgID != msg.ID {
		p.msgID, p.printed, p.tools = msg.ID, 0, 0
	}
	if p.showTool && p.printed == 0 {
		for ; p.tools < len(msg.Tools); p.tools++ {
			fmt.Fprintln(p.w, DimStyle.Render("> "+msg.Tools[p.tools]))
		}
	}
	if len(msg.Content) > p.printed {
		io.WriteString(p.w, msg.Content[p.printed:])
		p.printed = len(msg.Content)
		p.started = true
	}
}

// stop detaches from the conversation and writes whatever of final was
// not printed yet.
func (p *streamPrinter) stop(final *model.Message) {
	p.unsub()
	<-p.done
	if final != nil {
		p.write(*final)
	}
	if p.started {
		fmt.Fprintln(p.w)
	}
}

// =============================================================================
// ASK COMMAND
// =============================================================================

type askOptions struct {
	threadID   string
	resume     bool
	noSources  bool
	reasoning  bool
	noMarkdown bool
}

func newAskCommand(app *App) *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the streamed answer",
		Args:  minArgs(1, `ragterm ask "What changed in Q3?"`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return app.runAsk(ctx, cmd, strings.Join(args, " "), opts)
		},
	}
	cmd.Flags().StringVar(&opts.threadID, "thread", "", "continue a specific thread")
	cmd.Flags().BoolVarP(&opts.resume, "continue", "c", false, "continue the remembered thread of the workspace")
	cmd.Flags().BoolVar(&opts.noSources, "no-sources", false, "do not list sources after the answer")
	cmd.Flags().BoolVar(&opts.reasoning, "reasoning", false, "show reasoning steps")
	cmd.Flags().BoolVar(&opts.noMarkdown, "raw", false, "never render markdown")
	return cmd
}

// askResult is the JSON payload of ask.
type askResult struct {
	ThreadID    string         `json:"thread_id"`
	WorkspaceID string         `json:"workspace_id,omitempty"`
	Message     *model.Message `json:"message"`
}

func (a *App) runAsk(ctx context.Context, cmd *cobra.Command, question string, opts askOptions) error {
	if strings.TrimSpace(question) == "" {
		return NewValidationErrorWithExample("question", "", "must not be blank", `ragterm ask "What changed in Q3?"`)
	}

	session, err := a.NewSession(ctx)
	if err != nil {
		return err
	}

	switch {
	case opts.threadID != "":
		if err := session.SwitchThread(ctx, opts.threadID); err != nil {
			return err
		}
	case opts.resume:
		if err := session.Restore(ctx); err != nil {
			return err
		}
	default:
		if _, err := session.NewThread(); err != nil {
			a.log.Warn("could not reset thread", "err", err)
		}
	}

	render := !opts.noMarkdown && !a.flags.json && isTerminal(a.Out)
	var printer *streamPrinter
	if !a.flags.json && !render {
		printer = followConversation(a.Out, session.Conversation(), true)
	}
	if render {
		fmt.Fprintln(a.Err, DimStyle.Render("Thinking..."))
	}

	submitErr := session.Submit(ctx, question)

	// The user message was appended first, so a trailing assistant
	// message belongs to this turn.
	var final *model.Message
	if last, ok := session.Conversation().Last(); ok && !last.IsUser() {
		final = &last
	}
	if printer != nil {
		printer.stop(final)
	}

	if a.flags.json {
		if submitErr != nil {
			return submitErr
		}
		return a.emit(cmd, askResult{ThreadID: session.ThreadID(), WorkspaceID: session.WorkspaceID(), Message: final}, nil)
	}

	if final != nil {
		if render {
			fmt.Fprint(a.Out, renderMarkdown(final.Content, wrapWidth(a.Out)))
		}
		if opts.reasoning {
			printReasoning(a.Out, final.ReasoningSteps)
		}
		if !opts.noSources {
			printSources(a.Out, final.Sources)
		}
	}
	if submitErr != nil {
		return submitErr
	}
	fmt.Fprintln(a.Err, DimStyle.Render("thread "+session.ThreadID()))
	return nil
}
