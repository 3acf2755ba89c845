// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeranaias/ragterm/internal/model"
)

// MarkdownExporter renders a transcript for reading: YAML frontmatter, one
// section per message and a reference list under each reply.
type MarkdownExporter struct {
	options Options
}

func NewMarkdownExporter(opts Options) *MarkdownExporter {
	return &MarkdownExporter{options: opts}
}

func (*MarkdownExporter) FileExtension() string { return ".md" }
func (*MarkdownExporter) MimeType() string      { return "text/markdown" }

// mdWriter remembers the first write error so the renderer can write
// unconditionally and check once.
type mdWriter struct {
	w   io.Writer
	err error
}

func (m *mdWriter) printf(format string, args ...any) {
	if m.err == nil {
		_, m.err = fmt.Fprintf(m.w, format, args...)
	}
}

func (e *MarkdownExporter) Export(w io.Writer, t Transcript) error {
	if err := t.validate(); err != nil {
		return err
	}
	out := &mdWriter{w: w}
	title := t.DisplayTitle()

	out.printf("---\ntitle: %s\n", yamlScalar(title))
	if t.ThreadID != "" {
		out.printf("thread: %s\n", yamlScalar(t.ThreadID))
	}
	if t.WorkspaceID != "" {
		out.printf("workspace: %s\n", yamlScalar(t.WorkspaceID))
	}
	out.printf("messages: %d\nexported: %s\ngenerator: ragterm\n---\n\n",
		len(t.Messages), t.ExportedAt.Format(time.RFC3339))
	out.printf("# %s\n\n", mdEscaper.Replace(title))

	for i, msg := range t.Messages {
		if i > 0 {
			out.printf("---\n\n")
		}
		e.writeMessage(out, msg)
	}

	out.printf("*Exported from ragterm on %s*\n", formatTimestamp(t.ExportedAt))
	return out.err
}

func (e *MarkdownExporter) writeMessage(out *mdWriter, msg model.Message) {
	reply := msg.Role == model.RoleAssistant
	out.printf("### %s\n\n", roleHeading(msg.Role))

	if reply && e.options.IncludeTools && len(msg.Tools) > 0 {
		out.printf("<sub>Tools: %s</sub>\n\n", strings.Join(msg.Tools, ", "))
	}
	if reply && e.options.IncludeReasoning && len(msg.ReasoningSteps) > 0 {
		out.printf("<details><summary>Reasoning</summary>\n\n")
		for _, step := range msg.ReasoningSteps {
			out.printf("- %s\n", step)
		}
		out.printf("\n</details>\n\n")
	}

	out.printf("%s\n\n", strings.TrimSpace(msg.Content))

	if reply && e.options.IncludeSources && len(msg.Sources) > 0 {
		// Items are keyed by source id so inline [n] markers resolve.
		out.printf("**Sources**\n\n")
		for _, s := range msg.Sources {
			out.printf(`- \[%d\] %s`, s.ID, mdEscaper.Replace(s.Location()))
			if excerpt := collapse(s.Content, 120); excerpt != "" {
				out.printf(": %s", excerpt)
			}
			out.printf("\n")
		}
		out.printf("\n")
	}
}

func roleHeading(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "[User]"
	case model.RoleAssistant:
		return "[Assistant]"
	case "":
		return "Unknown"
	}
	r := []rune(string(role))
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

// collapse folds whitespace and cuts s to max runes.
func collapse(s string, max int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max-3]) + "..."
}

// mdEscaper neutralises characters that would start headings, emphasis or
// links inside titles and list items.
var mdEscaper = strings.NewReplacer(
	`#`, `\#`,
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
)

// yamlScalar double-quotes frontmatter values that YAML would misread.
func yamlScalar(s string) string {
	plain := !strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") &&
		strings.TrimSpace(s) == s
	if plain {
		return s
	}
	return `"` + yamlQuoter.Replace(s) + `"`
}

var yamlQuoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
