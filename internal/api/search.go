// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Search matches q against document, workspace and thread names.
func (c *Client) Search(ctx context.Context, q, workspaceID string) (*SearchResults, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return &SearchResults{}, nil
	}

	query := url.Values{"q": {q}}
	if workspaceID != "" {
		query.Set("workspace_id", workspaceID)
	}

	var results SearchResults
	if err := c.doJSON(ctx, http.MethodGet, "/search", query, nil, &results); err != nil {
		return nil, err
	}
	return &results, nil
}
