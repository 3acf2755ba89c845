// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(colorProfile())
}

// fg is a foreground-only style in a 256-color palette index.
func fg(code string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(code))
}

// Styles shared by the human-readable output of every command.
var (
	TitleStyle     = fg("39").Bold(true)
	SectionStyle   = fg("255").Bold(true)
	HeaderStyle    = fg("245").Bold(true)
	PromptStyle    = fg("39").Bold(true)
	LabelStyle     = fg("245").Width(18)
	ValueStyle     = fg("252")
	SuccessStyle   = fg("42").Bold(true)
	ErrorStyle     = fg("196").Bold(true)
	WarningStyle   = fg("214")
	InfoStyle      = fg("75")
	HighlightStyle = fg("82")
	DimStyle       = fg("242")
)

// statusStyles maps lowercase task and document states to their color.
var statusStyles = map[string]lipgloss.Style{
	"ok":         SuccessStyle,
	"completed":  SuccessStyle,
	"indexed":    SuccessStyle,
	"ready":      SuccessStyle,
	"enabled":    SuccessStyle,
	"failed":     ErrorStyle,
	"error":      ErrorStyle,
	"pending":    WarningStyle,
	"processing": WarningStyle,
	"queued":     WarningStyle,
}

// RenderStatus renders status as a bracketed uppercase tag. Unknown states
// are dimmed.
func RenderStatus(status string) string {
	style, ok := statusStyles[strings.ToLower(status)]
	if !ok {
		style = DimStyle
	}
	return style.Render("[" + strings.ToUpper(status) + "]")
}

// RenderLabel pads label to the label column, or to width when given.
func RenderLabel(label string, width ...int) string {
	if len(width) > 0 && width[0] > 0 {
		return LabelStyle.Copy().Width(width[0]).Render(label)
	}
	return LabelStyle.Render(label)
}
