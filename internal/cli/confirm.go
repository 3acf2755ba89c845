// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation and choice prompts.
//
// Destructive commands (docs delete, workspaces delete, threads delete,
// tools delete) ask before acting. --yes skips the prompt. Without a
// terminal, or in JSON mode, --yes is required.

package cli

import (
	"fmt"
	"strings"
)

// RequireConfirmation checks that the user confirmed a destructive action.
//
// Confirmation flow:
//  1. --yes returns true immediately
//  2. JSON mode returns an error (no interactive prompts)
//  3. no terminal returns an error
//  4. otherwise prompt and read the answer
func (a *App) RequireConfirmation(action string) (bool, error) {
	if a.flags.yes {
		return true, nil
	}
	if a.flags.json {
		return false, NewValidationErrorWithExample("confirmation", "", "required in JSON mode", "add --yes")
	}
	if !a.interactive() {
		return false, NewValidationErrorWithExample("confirmation", "", "stdin is not a terminal", "add --yes")
	}
	return a.PromptYesNo(fmt.Sprintf("Are you sure you want to %s?", action)), nil
}

// ShowCancellationMessage prints the standard cancellation line.
func (a *App) ShowCancellationMessage() {
	fmt.Fprintln(a.Out, DimStyle.Render("Cancelled."))
}

// PromptYesNo asks a yes/no question. It returns false when no answer can
// be read.
func (a *App) PromptYesNo(question string) bool {
	if !a.interactive() {
		return false
	}

	fmt.Fprintf(a.Out, "%s [y/N]: ", question)
	input, err := a.readLine()
	if err != nil {
		return false
	}

	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes"
}

// PromptChoice asks the user to choose one option and returns its 0-based
// index. It returns -1 on invalid input or when no terminal is available.
func (a *App) PromptChoice(question string, options []string) int {
	if !a.interactive() {
		return -1
	}

	fmt.Fprintln(a.Out)
	fmt.Fprintln(a.Out, question)
	fmt.Fprintln(a.Out)
	for i, option := range options {
		fmt.Fprintf(a.Out, "  %d) %s\n", i+1, option)
	}
	fmt.Fprintln(a.Out)
	fmt.Fprintf(a.Out, "Enter choice (1-%d): ", len(options))

	input, err := a.readLine()
	if err != nil {
		return -1
	}

	var choice int
	if _, err := fmt.Sscanf(strings.TrimSpace(input), "%d", &choice); err != nil || choice < 1 || choice > len(options) {
		return -1
	}
	return choice - 1
}

func (a *App) readLine() (string, error) {
	line, err := a.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
