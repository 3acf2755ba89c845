// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Tools lists the configured tools.
func (c *Client) Tools(ctx context.Context) ([]Tool, error) {
	var tools []Tool
	if err := c.doJSON(ctx, http.MethodGet, "/tools/", nil, nil, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// CreateTool registers a tool.
func (c *Client) CreateTool(ctx context.Context, in ToolInput) (*Tool, error) {
	var tool Tool
	if err := c.doJSON(ctx, http.MethodPost, "/tools/", nil, in, &tool); err != nil {
		return nil, err
	}
	return &tool, nil
}

// ToggleTool enables or disables a tool.
func (c *Client) ToggleTool(ctx context.Context, id string, enabled bool) (*Tool, error) {
	var tool Tool
	query := url.Values{"enabled": {strconv.FormatBool(enabled)}}
	if err := c.doJSON(ctx, http.MethodPatch, "/tools/"+pathEscape(id)+"/toggle", query, nil, &tool); err != nil {
		return nil, err
	}
	return &tool, nil
}

// DeleteTool removes a tool.
func (c *Client) DeleteTool(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/tools/"+pathEscape(id), nil, nil, nil)
}
