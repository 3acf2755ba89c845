// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme is the set of styles the chat screen renders with.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderInfo  lipgloss.Style

	UserLabel      lipgloss.Style
	UserText       lipgloss.Style
	AssistantLabel lipgloss.Style
	AssistantText  lipgloss.Style
	Reasoning      lipgloss.Style
	ToolLabel      lipgloss.Style
	SourceMarker   lipgloss.Style
	SourceName     lipgloss.Style
	Notice         lipgloss.Style
	ErrorText      lipgloss.Style

	Separator   lipgloss.Style
	InputPrompt lipgloss.Style
	Spinner     lipgloss.Style

	StatusBar    lipgloss.Style
	StatusKey    lipgloss.Style
	StatusValue  lipgloss.Style
	StatusActive lipgloss.Style
	StatusFailed lipgloss.Style
	StatusIdle   lipgloss.Style
	Shortcut     lipgloss.Style
}

// NewTheme builds a theme for mode "auto", "dark", "light" or "none".
// Unknown modes behave like "auto". "none" keeps the layout but drops all
// color. The choice is applied to lipgloss globally.
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()
	dark := termenv.HasDarkBackground()
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "dark":
		dark = true
	case "light":
		dark = false
	case "none":
		profile = termenv.Ascii
	}
	lipgloss.SetHasDarkBackground(dark)
	lipgloss.SetColorProfile(profile)

	plain := lipgloss.NewStyle
	color := func(c lipgloss.TerminalColor) lipgloss.Style { return plain().Foreground(c) }
	bold := func(c lipgloss.TerminalColor) lipgloss.Style { return color(c).Bold(true) }
	gutter := func(text, rule lipgloss.TerminalColor) lipgloss.Style {
		return color(text).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(rule).
			PaddingLeft(1)
	}
	bar := plain().Background(SurfaceDim).Padding(0, 1)

	return &Theme{
		IsDark:       dark,
		ColorProfile: profile,

		Header:      bar,
		HeaderTitle: bold(Cyan),
		HeaderInfo:  color(TextSecondary),

		UserLabel:      bold(userGutter),
		UserText:       gutter(userText, userGutter),
		AssistantLabel: bold(Purple),
		AssistantText:  gutter(replyText, replyGutter),
		Reasoning:      color(TextMuted).Italic(true),
		ToolLabel:      color(Amber),
		SourceMarker:   bold(Cyan),
		SourceName:     color(TextSecondary),
		Notice:         color(TextMuted),
		ErrorText:      bold(Rose),

		Separator:   color(Overlay),
		InputPrompt: bold(Cyan),
		Spinner:     color(Purple),

		StatusBar:    bar.Copy().Foreground(TextSecondary),
		StatusKey:    color(TextMuted),
		StatusValue:  color(TextPrimary),
		StatusActive: bold(Amber),
		StatusFailed: bold(Rose),
		StatusIdle:   color(Emerald),
		Shortcut:     color(TextMuted),
	}
}

// LayoutMode buckets the terminal width. Components drop detail as the
// screen narrows.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // under 60 columns
	LayoutMedium                   // 60 to 99 columns
	LayoutWide                     // 100 columns and up
)

// LayoutFor returns the mode for a screen width columns wide.
func LayoutFor(width int) LayoutMode {
	switch {
	case width < 60:
		return LayoutNarrow
	case width < 100:
		return LayoutMedium
	}
	return LayoutWide
}
