// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/jeranaias/ragterm/internal/model"
	"github.com/jeranaias/ragterm/internal/stream"
)

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamChat posts one chat turn and calls fn for each decoded event in
// arrival order. It returns when the stream ends, fn fails, a fatal event
// arrives or ctx is canceled.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest, fn stream.Handler) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/chat/stream", nil), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.send(c.streamClient, httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, readErr := readResponse(resp)
		if readErr != nil {
			return &APIError{Status: resp.StatusCode, Message: readErr.Error()}
		}
		return handleErrorResponse(resp.StatusCode, body)
	}

	// A JSON body on a 2xx means the backend refused before streaming
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt == "application/json" {
		body, err := readResponse(resp)
		if err != nil {
			return err
		}
		return decodeEnvelope(resp.StatusCode, body, nil)
	}

	return stream.Consume(ctx, resp.Body, fn)
}

// =============================================================================
// THREADS
// =============================================================================

// Threads lists the chat threads of a workspace.
func (c *Client) Threads(ctx context.Context, workspaceID string) ([]Thread, error) {
	var threads []Thread
	if err := c.doJSON(ctx, http.MethodGet, "/chat/threads", workspaceQuery(workspaceID), nil, &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

// History returns the finalized messages of a thread in order.
func (c *Client) History(ctx context.Context, threadID string) ([]model.Message, error) {
	var raw json.RawMessage
	path := "/chat/history/" + pathEscape(threadID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeHistory(raw)
}

// decodeHistory accepts either a bare array or {"messages": [...]}.
func decodeHistory(raw json.RawMessage) ([]model.Message, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var msgs []model.Message
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &msgs); err != nil {
			return nil, fmt.Errorf("failed to parse history: %w", err)
		}
		return msgs, nil
	}

	var wrapped struct {
		Messages []model.Message `json:"messages"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return wrapped.Messages, nil
}

// UpdateThreads applies a bulk update to several threads.
func (c *Client) UpdateThreads(ctx context.Context, updates []ThreadUpdate) error {
	body := map[string]interface{}{"threads": updates}
	return c.doJSON(ctx, http.MethodPatch, "/chat/threads", nil, body, nil)
}

// RenameThread sets a thread's title.
func (c *Client) RenameThread(ctx context.Context, threadID, title string) error {
	path := "/chat/threads/" + pathEscape(threadID) + "/title"
	return c.doJSON(ctx, http.MethodPatch, path, nil, map[string]string{"title": title}, nil)
}

// DeleteThread removes a thread and its history.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/chat/threads/"+pathEscape(threadID), nil, nil, nil)
}
