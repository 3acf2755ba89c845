// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/ragterm/internal/model"
	"github.com/jeranaias/ragterm/internal/util"
)

// ErrEmptyTranscript is returned when there is nothing to export.
var ErrEmptyTranscript = errors.New("thread has no messages")

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is one thread's finalized history plus the context it came from.
type Transcript struct {
	ThreadID    string          `json:"thread_id" yaml:"thread_id"`
	Title       string          `json:"title" yaml:"title"`
	WorkspaceID string          `json:"workspace_id,omitempty" yaml:"workspace_id,omitempty"`
	ExportedAt  time.Time       `json:"exported_at" yaml:"exported_at"`
	Messages    []model.Message `json:"messages" yaml:"messages"`
}

// DisplayTitle falls back to the first user message, then to the thread id.
func (t Transcript) DisplayTitle() string {
	if strings.TrimSpace(t.Title) != "" {
		return t.Title
	}
	for _, m := range t.Messages {
		if m.IsUser() {
			return m.Preview(60)
		}
	}
	if t.ThreadID != "" {
		return t.ThreadID
	}
	return "Conversation"
}

func (t Transcript) validate() error {
	if len(t.Messages) == 0 {
		return ErrEmptyTranscript
	}
	return nil
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a transcript in one format.
type Exporter interface {
	Export(w io.Writer, t Transcript) error

	// FileExtension returns the extension including the dot.
	FileExtension() string

	MimeType() string
}

// Options configures the human-readable exporters.
type Options struct {
	IncludeReasoning bool
	IncludeSources   bool
	IncludeTools     bool
}

// DefaultOptions includes everything.
func DefaultOptions() Options {
	return Options{
		IncludeReasoning: true,
		IncludeSources:   true,
		IncludeTools:     true,
	}
}

// Formats lists the names ForFormat accepts.
var Formats = []string{"json", "yaml", "markdown"}

// ForFormat returns the exporter for a format name or file extension.
func ForFormat(format string, opts Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		return NewJSONExporter(), nil
	case "yaml", "yml":
		return NewYAMLExporter(), nil
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile renders t into dir and returns the written path. The file
// name is derived from the title and the export time.
func ExportToFile(t Transcript, exporter Exporter, dir string) (string, error) {
	if t.ExportedAt.IsZero() {
		t.ExportedAt = time.Now()
	}

	if dir == "" {
		dir = "."
	}
	filename := fmt.Sprintf("thread_%s_%s%s",
		sanitizeFilename(t.DisplayTitle()),
		t.ExportedAt.Format("20060102_150405"),
		exporter.FileExtension(),
	)
	path := filepath.Join(dir, filename)

	err := util.WriteFileAtomic(path, 0644, 0755, func(w io.Writer) error {
		return exporter.Export(w, t)
	})
	if err != nil {
		return "", fmt.Errorf("export %s: %w", path, err)
	}
	return path, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	runes := []rune(s)
	if len(runes) > 50 {
		runes = runes[:50]
	}

	result := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			result = append(result, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			result = append(result, '_')
		case r < 32 || r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "conversation"
	}
	return string(result)
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
