// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"io"
)

// JSONExporter writes the whole transcript, unfiltered, in a form that
// decodes back into a Transcript.
type JSONExporter struct{}

func NewJSONExporter() *JSONExporter { return &JSONExporter{} }

func (*JSONExporter) FileExtension() string { return ".json" }
func (*JSONExporter) MimeType() string      { return "application/json" }

func (*JSONExporter) Export(w io.Writer, t Transcript) error {
	if err := t.validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(t)
}
