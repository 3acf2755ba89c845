// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/ragterm/internal/model"
)

// =============================================================================
// YAML EXPORTER
// =============================================================================

// YAMLExporter writes the transcript as a YAML document.
type YAMLExporter struct{}

// NewYAMLExporter creates a new YAML exporter.
func NewYAMLExporter() *YAMLExporter {
	return &YAMLExporter{}
}

type yamlSource struct {
	ID       int    `yaml:"id"`
	Name     string `yaml:"name"`
	Location string `yaml:"location,omitempty"`
	Excerpt  string `yaml:"excerpt,omitempty"`
}

type yamlMessage struct {
	ID        string       `yaml:"id"`
	Role      model.Role   `yaml:"role"`
	Content   string       `yaml:"content"`
	Reasoning []string     `yaml:"reasoning,omitempty"`
	Tools     []string     `yaml:"tools,omitempty"`
	Sources   []yamlSource `yaml:"sources,omitempty"`
}

type yamlDoc struct {
	ThreadID    string        `yaml:"thread_id"`
	Title       string        `yaml:"title"`
	WorkspaceID string        `yaml:"workspace_id,omitempty"`
	ExportedAt  string        `yaml:"exported_at"`
	Messages    []yamlMessage `yaml:"messages"`
}

// Export writes t as YAML. Multi-line content becomes a literal block.
func (e *YAMLExporter) Export(w io.Writer, t Transcript) error {
	if err := t.validate(); err != nil {
		return err
	}

	doc := yamlDoc{
		ThreadID:    t.ThreadID,
		Title:       t.DisplayTitle(),
		WorkspaceID: t.WorkspaceID,
		ExportedAt:  t.ExportedAt.UTC().Format(time.RFC3339),
	}
	for _, m := range t.Messages {
		ym := yamlMessage{ID: m.ID, Role: m.Role, Content: m.Content, Reasoning: m.ReasoningSteps, Tools: m.Tools}
		for _, s := range m.Sources {
			ym.Sources = append(ym.Sources, yamlSource{ID: s.ID, Name: s.Name, Location: s.Location(), Excerpt: s.Content})
		}
		doc.Messages = append(doc.Messages, ym)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// FileExtension returns the file extension for YAML.
func (e *YAMLExporter) FileExtension() string {
	return ".yaml"
}

// MimeType returns the MIME type for YAML.
func (e *YAMLExporter) MimeType() string {
	return "application/yaml"
}
