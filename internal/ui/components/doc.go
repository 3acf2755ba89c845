// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the reusable pieces of the ragterm TUI.

# Components

Header (header.go) - Title bar with the backend URL and thread.
StatusBar (statusbar.go) - Bottom line with chat status, workspace, and the
task summary from the poller.
Spinner (spinner.go) - ASCII spinner with an elapsed timer shown while a
reply streams.
ToastManager (toast.go) - Self-dismissing notification line, used for task
completions and failures.

All components render with the shared styles.Theme and are plain values
owned by the chat model; none of them run goroutines.
*/
package components
