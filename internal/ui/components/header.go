// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragterm/internal/ui/styles"
	"github.com/jeranaias/ragterm/internal/util"
)

// Header is the title bar: brand on the left, backend and thread on the right.
type Header struct {
	Title  string
	Server string
	Thread string
	Width  int
	theme  *styles.Theme
}

// NewHeader returns an 80-column header titled "ragterm".
func NewHeader(theme *styles.Theme) *Header {
	return &Header{Title: "ragterm", Width: 80, theme: theme}
}

func (h *Header) SetWidth(width int) {
	h.Width = width
}

// View renders the header line.
func (h *Header) View() string {
	t := h.theme
	left := t.HeaderTitle.Render(h.Title)

	info := h.Server
	if h.Thread != "" && styles.LayoutFor(h.Width) == styles.LayoutWide {
		info = h.Thread + "  " + info
	}
	inner := h.Width - t.Header.GetHorizontalFrameSize()
	room := inner - lipgloss.Width(left) - 2
	right := t.HeaderInfo.Render(util.Truncate(info, room))

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return t.Header.Width(h.Width).Render(left + strings.Repeat(" ", gap) + right)
}
