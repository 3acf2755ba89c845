// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jeranaias/ragterm/internal/tasks"
)

// Client is the poller's task source.
var _ tasks.Source = (*Client)(nil)

// ListTasks returns the backend's tasks, optionally filtered by type.
func (c *Client) ListTasks(ctx context.Context, taskType string) ([]tasks.Task, error) {
	var query url.Values
	if taskType != "" {
		query = url.Values{"type": {taskType}}
	}

	var list []tasks.Task
	if err := c.doJSON(ctx, http.MethodGet, "/tasks/", query, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Task fetches one task.
func (c *Client) Task(ctx context.Context, id string) (*tasks.Task, error) {
	var t tasks.Task
	if err := c.doJSON(ctx, http.MethodGet, "/tasks/"+pathEscape(id), nil, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// RetryTask re-queues a failed task.
func (c *Client) RetryTask(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/tasks/"+pathEscape(id)+"/retry", nil, nil, nil)
}

// CancelTask stops a pending or processing task.
func (c *Client) CancelTask(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/tasks/"+pathEscape(id)+"/cancel", nil, nil, nil)
}
