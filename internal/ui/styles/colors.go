// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the TUI palette and the lipgloss styles built on it.
// Every color is an AdaptiveColor; NewTheme picks the light or dark side.
package styles

import "github.com/charmbracelet/lipgloss"

func adaptive(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// Accents and states.
var (
	Purple  = adaptive("#7C3AED", "#A78BFA") // assistant, spinner
	Cyan    = adaptive("#0891B2", "#22D3EE") // brand, citations, input
	Emerald = adaptive("#059669", "#34D399") // idle, completed
	Rose    = adaptive("#E11D48", "#FB7185") // errors, failed tasks
	Amber   = adaptive("#D97706", "#FBBF24") // tools, active tasks
)

// Surfaces and text.
var (
	SurfaceDim    = adaptive("#F5F5F5", "#181825")
	Overlay       = adaptive("#E5E5E5", "#313244")
	TextPrimary   = adaptive("#1F2937", "#CDD6F4")
	TextSecondary = adaptive("#6B7280", "#A6ADC8")
	TextMuted     = adaptive("#9CA3AF", "#6C7086")
)

// Message gutters.
var (
	userText    = adaptive("#1E40AF", "#E0F2FE")
	userGutter  = adaptive("#3B82F6", "#3B82F6")
	replyText   = adaptive("#5B4B8A", "#E9E4F5")
	replyGutter = adaptive("#C4B5FD", "#A78BFA")
)

// StatusIndicatorSet holds the text marks that make a state readable
// without color.
type StatusIndicatorSet struct {
	Success, Error, Warning, Info, Pending, Active string
}

// StatusIndicators stay ASCII so they survive any terminal.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
	Pending: "[ ]",
	Active:  "[*]",
}
