// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
)

// Workspaces lists every workspace.
func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	var out []Workspace
	if err := c.doJSON(ctx, http.MethodGet, "/workspaces/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateWorkspace creates a workspace.
func (c *Client) CreateWorkspace(ctx context.Context, in WorkspaceInput) (*Workspace, error) {
	var ws Workspace
	if err := c.doJSON(ctx, http.MethodPost, "/workspaces/", nil, in, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// UpdateWorkspace renames or re-describes a workspace.
func (c *Client) UpdateWorkspace(ctx context.Context, id string, in WorkspaceInput) (*Workspace, error) {
	var ws Workspace
	if err := c.doJSON(ctx, http.MethodPut, "/workspaces/"+pathEscape(id), nil, in, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// DeleteWorkspace removes a workspace with its documents and threads.
func (c *Client) DeleteWorkspace(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/workspaces/"+pathEscape(id), nil, nil, nil)
}

// WorkspaceDetails returns a workspace with its documents and threads.
func (c *Client) WorkspaceDetails(ctx context.Context, id string) (*WorkspaceDetails, error) {
	var details WorkspaceDetails
	if err := c.doJSON(ctx, http.MethodGet, "/workspaces/"+pathEscape(id)+"/details", nil, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// ShareDocument makes a document visible in another workspace.
func (c *Client) ShareDocument(ctx context.Context, workspaceID, documentName string) error {
	path := "/workspaces/" + pathEscape(workspaceID) + "/share"
	return c.doJSON(ctx, http.MethodPost, path, nil, map[string]string{"document_name": documentName}, nil)
}
