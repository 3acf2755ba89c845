// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/ragterm/internal/model"
)

func sampleTranscript() Transcript {
	return Transcript{
		ThreadID:   "t1",
		Title:      "Budget: Q3 review",
		ExportedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Messages: []model.Message{
			{ID: "m1", Role: model.RoleUser, Content: "What changed in Q3?"},
			{
				ID:             "m2",
				Role:           model.RoleAssistant,
				Content:        "Travel spend fell [1] while hiring grew [2].",
				ReasoningSteps: []string{"Searching documents"},
				Tools:          []string{"Searching documents"},
				Sources: []model.Source{
					{ID: 1, Name: "travel.pdf", Content: "Travel\nfell 12%", ChunkIndex: 0, ChunkCount: 4},
					{ID: 2, Name: "hiring_plan.md"},
				},
			},
		},
	}
}

func TestMarkdownExporter_References(t *testing.T) {
	var buf bytes.Buffer
	if err := NewMarkdownExporter(DefaultOptions()).Export(&buf, sampleTranscript()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`title: "Budget: Q3 review"`,
		"# Budget: Q3 review",
		"### [User]",
		"Travel spend fell [1] while hiring grew [2].",
		`- \[1\] travel.pdf (chunk 1/4): Travel fell 12%`,
		`- \[2\] hiring\_plan.md`,
		"<details><summary>Reasoning</summary>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q\n%s", want, out)
		}
	}
}

func TestMarkdownExporter_OptionsOmitSections(t *testing.T) {
	var buf bytes.Buffer
	if err := NewMarkdownExporter(Options{}).Export(&buf, sampleTranscript()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "**Sources**") || strings.Contains(out, "Reasoning") || strings.Contains(out, "Tools:") {
		t.Errorf("expected sources, reasoning and tools to be omitted:\n%s", out)
	}
}

func TestJSONExporter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter().Export(&buf, sampleTranscript()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var got Transcript
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got.ThreadID != "t1" || len(got.Messages) != 2 || len(got.Messages[1].Sources) != 2 {
		t.Errorf("unexpected transcript: %+v", got)
	}
}

func TestYAMLExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewYAMLExporter().Export(&buf, sampleTranscript()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var doc yamlDoc
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if doc.Title != "Budget: Q3 review" {
		t.Errorf("title = %q", doc.Title)
	}
	if len(doc.Messages) != 2 || doc.Messages[1].Sources[0].Location != "travel.pdf (chunk 1/4)" {
		t.Errorf("unexpected messages: %+v", doc.Messages)
	}
}

func TestExporters_RejectEmpty(t *testing.T) {
	for _, format := range Formats {
		exp, err := ForFormat(format, DefaultOptions())
		if err != nil {
			t.Fatalf("ForFormat(%q): %v", format, err)
		}
		err = exp.Export(&bytes.Buffer{}, Transcript{ThreadID: "t1"})
		if !errors.Is(err, ErrEmptyTranscript) {
			t.Errorf("%s: expected ErrEmptyTranscript, got %v", format, err)
		}
	}
}

func TestForFormat(t *testing.T) {
	tests := map[string]string{
		"json": ".json", ".md": ".md", "Markdown": ".md", "yml": ".yaml",
	}
	for in, ext := range tests {
		exp, err := ForFormat(in, DefaultOptions())
		if err != nil {
			t.Errorf("ForFormat(%q): %v", in, err)
			continue
		}
		if exp.FileExtension() != ext {
			t.Errorf("ForFormat(%q).FileExtension() = %q, want %q", in, exp.FileExtension(), ext)
		}
	}
	if _, err := ForFormat("html", DefaultOptions()); err == nil {
		t.Error("expected error for html")
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	path, err := ExportToFile(sampleTranscript(), NewMarkdownExporter(DefaultOptions()), dir)
	if err != nil {
		t.Fatalf("ExportToFile: %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Errorf("wrote outside dir: %s", path)
	}
	if got := filepath.Base(path); got != "thread_Budget-_Q3_review_20250601_120000.md" {
		t.Errorf("filename = %q", got)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "Travel spend fell") {
		t.Errorf("file content wrong: %v", err)
	}
}

func TestDisplayTitleFallback(t *testing.T) {
	tr := sampleTranscript()
	tr.Title = "  "
	if got := tr.DisplayTitle(); got != "What changed in Q3?" {
		t.Errorf("DisplayTitle() = %q", got)
	}
	if got := (Transcript{ThreadID: "t9"}).DisplayTitle(); got != "t9" {
		t.Errorf("DisplayTitle() = %q", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"a/b\\c":      "a-b-c",
		"hello world": "hello_world",
		"":            "conversation",
		"bell\x07":    "bell-",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
