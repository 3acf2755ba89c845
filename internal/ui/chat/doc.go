// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat screen of the ragterm TUI.

# Key Components

## Model (model.go)

The Model is the Bubble Tea model. It owns the viewport, the text input, the
spinner, the header, the status bar and the toast line. Chat state lives in
the chat session; the model only renders it.

## Update Loop (update.go)

A reply streams on a tea.Cmd goroutine that calls Session.Submit. The model
follows the conversation through its change subscription and re-renders on
every change. Task views and notifications arrive from the poller's
channels the same way.

## Slash Commands (commands.go)

/new, /thread <id>, /cite <n>, /sources, /reasoning, /tasks,
/retry <id>, /dismiss <id>, /help and /quit.

## View Rendering (view.go)

Messages render with role labels, reasoning steps when enabled, tool
labels and source lists. Finished assistant replies render as Markdown
through glamour.
*/
package chat
