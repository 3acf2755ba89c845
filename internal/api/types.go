// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"github.com/jeranaias/ragterm/internal/model"
)

// =============================================================================
// WORKSPACES
// =============================================================================

// Workspace is an isolation boundary for documents, threads and settings.
type Workspace struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CreatedAt   model.Timestamp `json:"created_at"`
	UpdatedAt   model.Timestamp `json:"updated_at"`
}

// WorkspaceInput is the body of create and update requests.
type WorkspaceInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// WorkspaceDetails is a workspace with its contents.
type WorkspaceDetails struct {
	Workspace
	DocumentCount int        `json:"document_count"`
	ThreadCount   int        `json:"thread_count"`
	Documents     []Document `json:"documents,omitempty"`
	Threads       []Thread   `json:"threads,omitempty"`
	Settings      Settings   `json:"settings,omitempty"`
}

// =============================================================================
// THREADS
// =============================================================================

// Thread is a persisted conversation scoped to one workspace.
type Thread struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	WorkspaceID  string          `json:"workspace_id,omitempty"`
	MessageCount int             `json:"message_count,omitempty"`
	CreatedAt    model.Timestamp `json:"created_at"`
	UpdatedAt    model.Timestamp `json:"updated_at"`
}

// ThreadUpdate is one entry of a bulk thread update.
type ThreadUpdate struct {
	ID          string  `json:"id"`
	Title       *string `json:"title,omitempty"`
	WorkspaceID *string `json:"workspace_id,omitempty"`
}

// ChatRequest is the body of POST /chat/stream.
type ChatRequest struct {
	Message     string `json:"message"`
	ThreadID    string `json:"thread_id"`
	WorkspaceID string `json:"workspace_id,omitempty"`
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// Document is an uploaded, indexed file.
type Document struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	WorkspaceID string          `json:"workspace_id,omitempty"`
	Size        int64           `json:"size,omitempty"`
	ContentType string          `json:"content_type,omitempty"`
	ChunkCount  int             `json:"chunk_count,omitempty"`
	Status      string          `json:"status,omitempty"`
	ContentHash string          `json:"content_hash,omitempty"`
	Source      string          `json:"source,omitempty"`
	Content     string          `json:"content,omitempty"`
	UploadedAt  model.Timestamp `json:"uploaded_at"`
}

// Strategy resolves a duplicate upload.
type Strategy string

const (
	// StrategyNone fails with DUPLICATE_DETECTED on a duplicate.
	StrategyNone Strategy = ""
	// StrategyRename uploads the file as a renamed copy.
	StrategyRename Strategy = "rename"
	// StrategyUseExisting keeps the existing document.
	StrategyUseExisting Strategy = "use_existing"
	// StrategyOverwrite replaces the existing document.
	StrategyOverwrite Strategy = "overwrite"
)

// ParseStrategy validates a strategy name. The empty string is allowed.
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(s) {
	case StrategyNone, StrategyRename, StrategyUseExisting, StrategyOverwrite:
		return Strategy(s), true
	}
	return "", false
}

// UploadResult is returned by /upload and /upload-arxiv.
type UploadResult struct {
	Filename string    `json:"filename"`
	Status   string    `json:"status,omitempty"`
	TaskID   string    `json:"task_id,omitempty"`
	Message  string    `json:"message,omitempty"`
	Document *Document `json:"document,omitempty"`
}

// DuplicateInfo is the data of a DUPLICATE_DETECTED failure.
type DuplicateInfo struct {
	Filename    string    `json:"filename"`
	Existing    *Document `json:"existing_document,omitempty"`
	SuggestedAs string    `json:"suggested_name,omitempty"`
	MatchedBy   string    `json:"match_type,omitempty"`
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings maps setting keys to their current values.
type Settings map[string]interface{}

// Bool returns a boolean setting.
func (s Settings) Bool(key string) (bool, bool) {
	v, ok := s[key].(bool)
	return v, ok
}

// SettingMetadata describes one setting key.
type SettingMetadata struct {
	Mutable     bool     `json:"mutable"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Options     []string `json:"options,omitempty"`
}

// =============================================================================
// TOOLS
// =============================================================================

// Tool is a backend tool the model may call.
type Tool struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Type        string                 `json:"type,omitempty"`
	Enabled     bool                   `json:"enabled"`
	Config      map[string]interface{} `json:"config,omitempty"`
}

// ToolInput is the body of POST /tools/.
type ToolInput struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Type        string                 `json:"type,omitempty"`
	Enabled     bool                   `json:"enabled"`
	Config      map[string]interface{} `json:"config,omitempty"`
}

// =============================================================================
// SEARCH
// =============================================================================

// SearchResults are the matches of GET /search.
type SearchResults struct {
	Documents  []Document  `json:"documents"`
	Workspaces []Workspace `json:"workspaces"`
	Threads    []Thread    `json:"threads"`
}

// Empty reports whether nothing matched.
func (r SearchResults) Empty() bool {
	return len(r.Documents) == 0 && len(r.Workspaces) == 0 && len(r.Threads) == 0
}
