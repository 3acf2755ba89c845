// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

const ellipsis = "..."

// Truncate shortens s to at most width terminal cells, ending in "..."
// when anything was cut. Wide runes count as two cells.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= len(ellipsis) {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, ellipsis)
}

// Width returns the display width of s in terminal cells.
func Width(s string) int {
	return runewidth.StringWidth(s)
}

// PadRight pads s with spaces to width cells.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// OneLine collapses whitespace runs, including newlines, to single spaces.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Bytes formats a size such as "1.2 MB". Unknown sizes render as "-".
func Bytes(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n))
}

// Ago formats t relative to now, for example "3 minutes ago".
func Ago(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Count formats n with a singular or plural noun: "1 document", "3 documents".
func Count(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%s %ss", humanize.Comma(int64(n)), noun)
}
