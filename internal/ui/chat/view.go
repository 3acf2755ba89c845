// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/ragterm/internal/model"
	"github.com/jeranaias/ragterm/internal/ui/components"
	"github.com/jeranaias/ragterm/internal/ui/styles"
)

// =============================================================================
// SCREEN
// =============================================================================

// renderChat lays out header, viewport, activity line, input and status bar.
func (m Model) renderChat() string {
	if m.width == 0 {
		return "Loading..."
	}

	sep := m.theme.Separator.Render(strings.Repeat("─", m.width))
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header.View(),
		m.viewport.View(),
		m.renderActivity(),
		sep,
		m.input.View(),
		m.status.View(),
	)
}

// renderActivity is the line above the input: the newest toast, else the
// spinner while a reply streams.
func (m Model) renderActivity() string {
	if t, ok := m.toasts.Current(); ok {
		return components.RenderToast(t, m.toasts.Len(), m.width)
	}
	if m.spinner.IsActive() {
		return m.spinner.View()
	}
	return ""
}

// updateViewport re-renders the conversation. The view stays pinned to the
// bottom unless the user scrolled up.
func (m *Model) updateViewport() {
	follow := m.viewport.AtBottom() || m.viewport.TotalLineCount() <= m.viewport.Height
	m.viewport.SetContent(m.renderConversation())
	if follow {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

func (m Model) renderConversation() string {
	width := m.contentWidth()
	msgs := m.conv.Messages()

	var b strings.Builder
	if len(msgs) == 0 && len(m.notices) == 0 {
		b.WriteString(m.theme.Notice.Render("Ask a question about your documents. Type /help for commands."))
		b.WriteString("\n")
	}
	for _, msg := range msgs {
		b.WriteString(m.renderMessage(msg, width))
		b.WriteString("\n")
	}
	for _, n := range m.notices {
		style := m.theme.Notice
		if n.isErr {
			style = m.theme.ErrorText
		}
		b.WriteString(style.Width(width).Render(n.text))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderMessage(msg model.Message, width int) string {
	t := m.theme
	var b strings.Builder

	if msg.IsUser() {
		b.WriteString(t.UserLabel.Render(msg.Role.DisplayName()))
		b.WriteString("\n")
		b.WriteString(t.UserText.Width(width).Render(msg.Content))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(t.AssistantLabel.Render(msg.Role.DisplayName()))
	b.WriteString("\n")

	if m.sess.ShowReasoning() {
		for _, step := range msg.ReasoningSteps {
			b.WriteString(t.Reasoning.Width(width).Render("- " + step))
			b.WriteString("\n")
		}
	}
	for _, tool := range msg.Tools {
		b.WriteString(t.ToolLabel.Render("> " + model.ToolLabel(tool)))
		b.WriteString("\n")
	}

	if msg.Finalized && msg.Content != "" {
		b.WriteString(m.rendered.get(msg, width, t))
	} else {
		b.WriteString(t.AssistantText.Width(width).Render(msg.Content))
		b.WriteString("\n")
	}

	if len(msg.Sources) > 0 {
		b.WriteString(t.Notice.Render("Sources:"))
		b.WriteString("\n")
		for _, s := range msg.Sources {
			b.WriteString("  ")
			b.WriteString(t.SourceMarker.Render(fmt.Sprintf("[%d]", s.ID)))
			b.WriteString(" ")
			b.WriteString(t.SourceName.Render(s.Location()))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// contentWidth leaves room for the message border and a right margin.
func (m Model) contentWidth() int {
	if m.width < 20 {
		return 20
	}
	return m.width - 2
}

// =============================================================================
// MARKDOWN CACHE
// =============================================================================

// renderCache holds glamour output for finished replies. Finished replies
// never change, so an id plus width is a complete key.
type renderCache struct {
	entries  map[string]string
	renderer *glamour.TermRenderer
	width    int
}

func newRenderCache() *renderCache {
	return &renderCache{entries: make(map[string]string)}
}

func (c *renderCache) reset() {
	c.entries = make(map[string]string)
}

func (c *renderCache) get(msg model.Message, width int, theme *styles.Theme) string {
	if c.renderer == nil || c.width != width {
		c.reset()
		c.width = width
		c.renderer = newMarkdownRenderer(width, theme)
	}
	if out, ok := c.entries[msg.ID]; ok {
		return out
	}

	out := theme.AssistantText.Width(width).Render(msg.Content) + "\n"
	if c.renderer != nil {
		if md, err := c.renderer.Render(msg.Content); err == nil {
			out = md
		}
	}
	c.entries[msg.ID] = out
	return out
}

// newMarkdownRenderer picks a fixed glamour style; querying the terminal
// from inside the alt screen would interleave with input.
func newMarkdownRenderer(width int, theme *styles.Theme) *glamour.TermRenderer {
	style := "light"
	switch {
	case theme.ColorProfile == termenv.Ascii:
		style = "notty"
	case theme.IsDark:
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}
