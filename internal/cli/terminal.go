// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Wrap bounds for rendered answers.
const (
	fallbackWidth = 80
	narrowWidth   = 40
)

// fdOf returns the descriptor behind v when v is a terminal.
func fdOf(v any) (int, bool) {
	f, ok := v.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// isTerminal is false for anything other than an *os.File on a tty, which
// keeps buffers used in tests on the plain path.
func isTerminal(v any) bool {
	_, ok := fdOf(v)
	return ok
}

// CanPrompt reports whether stdin can answer prompts.
func CanPrompt() bool { return isTerminal(os.Stdin) }

// wrapWidth is the column count of w clamped to narrowWidth, or
// fallbackWidth when w is not a terminal.
func wrapWidth(w io.Writer) int {
	fd, ok := fdOf(w)
	if !ok {
		return fallbackWidth
	}
	cols, _, err := term.GetSize(fd)
	switch {
	case err != nil || cols <= 0:
		return fallbackWidth
	case cols < narrowWidth:
		return narrowWidth
	}
	return cols
}

// colorProfile honours NO_COLOR (https://no-color.org) before FORCE_COLOR,
// then falls back to whether stdout is a terminal.
func colorProfile() termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	if os.Getenv("FORCE_COLOR") == "" && !isTerminal(os.Stdout) {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// TTYRequiredError is returned when an operation needs a terminal.
type TTYRequiredError struct {
	Operation string
}

func (e *TTYRequiredError) Error() string {
	what := "use interactive input"
	if e.Operation != "" {
		what = e.Operation
	}
	return "stdio is not a terminal; cannot " + what
}
