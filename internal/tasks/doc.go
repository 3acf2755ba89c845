// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks tracks the backend's background jobs (document ingestion).
//
// The server is the only writer of task status. This package polls it,
// guards against status moving backwards, and republishes the task list as
// derived views filtered by the user's dismissed set.
//
// # Key Types
//
//   - Task: server DTO with a monotonic Status
//   - Views: active, recently completed and failed tasks
//   - Poller: fixed-interval poller with retry, cancel and dismiss
//   - Notification: one-shot message for a task that failed or completed
//
// # Usage
//
//	p := tasks.NewPoller(client, stateStore, tasks.DefaultOptions())
//	p.Start(ctx)
//	defer p.Stop()
//
//	for n := range p.Notifications() {
//	    fmt.Println(n.Title, n.Message)
//	}
package tasks
