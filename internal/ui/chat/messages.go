// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/ragterm/internal/tasks"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// conversationChangedMsg signals that the conversation was mutated.
// The view re-reads the conversation, so dropped changes are harmless.
type conversationChangedMsg struct{}

// turnDoneMsg carries the result of Session.Submit.
type turnDoneMsg struct {
	err error
}

// restoredMsg carries the result of restoring the remembered thread.
type restoredMsg struct {
	err error
}

// threadSwitchedMsg carries the result of /thread.
type threadSwitchedMsg struct {
	threadID string
	err      error
}

// =============================================================================
// TASK MESSAGES
// =============================================================================

// tasksUpdatedMsg delivers a fresh views snapshot from the poller.
type tasksUpdatedMsg struct {
	views tasks.Views
}

// taskNotificationMsg delivers one completion or failure notification.
type taskNotificationMsg struct {
	n tasks.Notification
}

// taskActionMsg carries the result of /retry or /dismiss.
type taskActionMsg struct {
	verb string
	id   string
	err  error
}

// channelClosedMsg ends a listener whose channel was closed.
type channelClosedMsg struct{}
