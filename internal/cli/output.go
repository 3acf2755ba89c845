// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeranaias/ragterm/internal/model"
	"github.com/jeranaias/ragterm/internal/util"
)

// maxColumnWidth caps one table column; longer cells are truncated.
const maxColumnWidth = 48

// =============================================================================
// TABLES
// =============================================================================

// table is a plain column layout sized to its widest cells.
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = util.Width(h)
	}
	for _, row := range t.rows {
		for i := range widths {
			if i < len(row) {
				if cw := util.Width(util.OneLine(row[i])); cw > widths[i] {
					widths[i] = cw
				}
			}
		}
	}
	for i := range widths {
		if widths[i] > maxColumnWidth {
			widths[i] = maxColumnWidth
		}
	}

	cell := func(s string, i int) string {
		s = util.Truncate(util.OneLine(s), widths[i])
		if i == len(widths)-1 {
			return s
		}
		return util.PadRight(s, widths[i])
	}

	var header []string
	for i, h := range t.headers {
		header = append(header, HeaderStyle.Render(cell(h, i)))
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(header, "  "), " "))

	for _, row := range t.rows {
		var line []string
		for i := range widths {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			line = append(line, cell(v, i))
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(line, "  "), " "))
	}
}

// =============================================================================
// FIELDS AND MESSAGES
// =============================================================================

// printField writes one "label  value" line.
func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s%s\n", RenderLabel(label), ValueStyle.Render(value))
}

// printTitle writes a section title followed by a blank line.
func printTitle(w io.Writer, title string) {
	fmt.Fprintln(w, TitleStyle.Render(title))
	fmt.Fprintln(w)
}

// formatTime renders a timestamp relative to now, or "-" when unknown.
func formatTime(ts model.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return util.Ago(ts.Time, time.Now())
}

// printSources lists a message's sources as "[n] location" lines.
func printSources(w io.Writer, sources []model.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(w, DimStyle.Render("Sources:"))
	for _, s := range sources {
		fmt.Fprintf(w, "  %s %s\n", InfoStyle.Render(fmt.Sprintf("[%d]", s.ID)), s.Location())
	}
}

// printReasoning lists reasoning steps as dim bullet lines.
func printReasoning(w io.Writer, steps []string) {
	if len(steps) == 0 {
		return
	}
	fmt.Fprintln(w, DimStyle.Render("Reasoning:"))
	for _, step := range steps {
		fmt.Fprintln(w, DimStyle.Render("  - "+step))
	}
}

// printCitation shows one resolved source, or the not-available line.
func printCitation(w io.Writer, n int, src model.Source, ok bool) {
	if !ok {
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("Source [%d] is no longer available.", n)))
		return
	}
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("[%d] %s", n, src.Location())))
	if src.WorkspaceID != "" {
		printField(w, "Workspace", src.WorkspaceID)
	}
	if content := strings.TrimSpace(src.Content); content != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, content)
	}
}

// printMessage writes one finalized message of a transcript.
func printMessage(w io.Writer, msg model.Message, showReasoning bool) {
	label := msg.Role.DisplayName()
	if msg.IsUser() {
		fmt.Fprintln(w, PromptStyle.Render(label+":"))
	} else {
		fmt.Fprintln(w, HighlightStyle.Render(label+":"))
	}
	if showReasoning && !msg.IsUser() {
		printReasoning(w, msg.ReasoningSteps)
	}
	fmt.Fprintln(w, strings.TrimSpace(msg.Content))
	if !msg.IsUser() {
		printSources(w, msg.Sources)
	}
	fmt.Fprintln(w)
}
