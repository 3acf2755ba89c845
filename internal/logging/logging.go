// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the structured, leveled logger shared by every
// ragterm package.
//
// Log lines go to stderr as key/value pairs:
//
//	12:04:05 DEBU ragterm: api request method=GET path=/tasks/ status=200 dur=3ms
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// DefaultLevel keeps interactive screens quiet unless asked otherwise.
const DefaultLevel = log.WarnLevel

var (
	mu  sync.RWMutex
	std = New(os.Stderr, DefaultLevel)
)

// New creates a logger writing to w at the given level.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "ragterm",
		Level:           level,
	})
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return New(io.Discard, log.FatalLevel)
}

// Default returns the process-wide logger.
func Default() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	std = l
	log.SetDefault(l)
}

// ParseLevel parses "debug", "info", "warn", "error" or "fatal".
// An empty string yields DefaultLevel.
func ParseLevel(s string) (log.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return DefaultLevel, nil
	}
	if s == "warning" {
		s = "warn"
	}
	return log.ParseLevel(s)
}

// Setup parses level and installs a stderr logger at that level.
func Setup(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	SetDefault(New(os.Stderr, lvl))
	return nil
}
