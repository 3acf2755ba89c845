// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	session "github.com/jeranaias/ragterm/internal/chat"
	"github.com/jeranaias/ragterm/internal/logging"
	"github.com/jeranaias/ragterm/internal/model"
	"github.com/jeranaias/ragterm/internal/tasks"
	"github.com/jeranaias/ragterm/internal/ui/components"
	"github.com/jeranaias/ragterm/internal/ui/styles"
)

// =============================================================================
// LAYOUT
// =============================================================================

// Fixed rows around the viewport: header, separator, input, activity line
// (spinner or toast) and status bar.
const (
	headerHeight    = 1
	inputAreaHeight = 2
	activityHeight  = 1
	statusBarHeight = 1
	reservedHeight  = headerHeight + inputAreaHeight + activityHeight + statusBarHeight
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options wires the model to its collaborators.
type Options struct {
	Session *session.Session
	// Poller is optional. Without it the status bar shows no tasks.
	Poller *tasks.Poller
	Theme  *styles.Theme
	Server string
	Logger *log.Logger
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx    context.Context
	sess   *session.Session
	conv   *model.Conversation
	poller *tasks.Poller
	theme  *styles.Theme
	log    *log.Logger

	// Dimensions
	width  int
	height int

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  components.Spinner
	header   *components.Header
	status   *components.StatusBar
	toasts   *components.ToastManager
	keys     KeyMap

	// Subscriptions, released by Close
	changes     <-chan model.Change
	unsubConv   func()
	taskViews   <-chan tasks.Views
	unsubTasks  func()
	toastTicker bool

	// notices are local lines shown after the conversation, such as
	// resolved citations and command output. /new clears them.
	notices []notice

	// rendered caches glamour output of finished replies by message id
	rendered *renderCache
}

// notice is one local line below the conversation.
type notice struct {
	text  string
	isErr bool
}

// New creates the chat model. ctx bounds every turn and background call.
func New(ctx context.Context, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.Placeholder = "Ask about your documents, or /help"
	ti.CharLimit = 8192
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	header := components.NewHeader(theme)
	header.Server = opts.Server

	conv := opts.Session.Conversation()
	changes, unsubConv := conv.Subscribe()

	m := Model{
		ctx:       ctx,
		sess:      opts.Session,
		conv:      conv,
		poller:    opts.Poller,
		theme:     theme,
		log:       logger,
		viewport:  vp,
		input:     ti,
		spinner:   components.NewSpinner("Thinking"),
		header:    header,
		status:    components.NewStatusBar(theme),
		toasts:    components.NewToastManager(),
		keys:      DefaultKeyMap(),
		changes:   changes,
		unsubConv: unsubConv,
		rendered:  newRenderCache(),
	}
	if opts.Poller != nil {
		m.taskViews, m.unsubTasks = opts.Poller.Subscribe()
	}
	m.syncStatus()
	return m
}

// Close releases the conversation and task subscriptions.
func (m Model) Close() {
	if m.unsubConv != nil {
		m.unsubConv()
	}
	if m.unsubTasks != nil {
		m.unsubTasks()
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init restores the remembered thread and starts the listeners.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		m.restoreCmd(),
		waitForChange(m.changes),
	}
	if m.poller != nil {
		cmds = append(cmds,
			waitForViews(m.taskViews),
			waitForNotification(m.poller.Notifications()),
		)
	}
	return tea.Batch(cmds...)
}

// View renders the chat screen.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// LISTENERS
// =============================================================================

// waitForChange blocks until the conversation changes. Bursts of changes
// collapse into one message.
func waitForChange(ch <-chan model.Change) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return channelClosedMsg{}
		}
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return conversationChangedMsg{}
				}
			default:
				return conversationChangedMsg{}
			}
		}
	}
}

func waitForViews(ch <-chan tasks.Views) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return channelClosedMsg{}
		}
		return tasksUpdatedMsg{views: v}
	}
}

func waitForNotification(ch <-chan tasks.Notification) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return channelClosedMsg{}
		}
		return taskNotificationMsg{n: n}
	}
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// submitCmd runs one turn. It blocks its goroutine until the reply ends;
// the conversation subscription renders the reply as it streams.
func (m Model) submitCmd(text string) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		return turnDoneMsg{err: sess.Submit(ctx, text)}
	}
}

func (m Model) restoreCmd() tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		return restoredMsg{err: sess.Restore(ctx)}
	}
}

func (m Model) switchThreadCmd(id string) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		return threadSwitchedMsg{threadID: id, err: sess.SwitchThread(ctx, id)}
	}
}

func (m Model) taskActionCmd(verb, id string) tea.Cmd {
	p, ctx := m.poller, m.ctx
	return func() tea.Msg {
		var err error
		switch verb {
		case "retry":
			err = p.Retry(ctx, id)
		case "cancel":
			err = p.Cancel(ctx, id)
		case "dismiss":
			err = p.Dismiss(id)
		}
		return taskActionMsg{verb: verb, id: id, err: err}
	}
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// syncStatus copies session state into the header and status bar.
func (m *Model) syncStatus() {
	m.status.Workspace = m.sess.WorkspaceID()
	m.status.ThreadID = m.sess.ThreadID()
	m.status.ShowReasoning = m.sess.ShowReasoning()
	if m.sess.Loading() {
		m.status.Status = components.StatusStreaming
	} else if m.status.Status == components.StatusStreaming {
		m.status.Status = components.StatusReady
	}
	m.header.Thread = m.status.ThreadID
}

func (m *Model) addNotice(text string) {
	m.notices = append(m.notices, notice{text: text})
}

func (m *Model) addErrorNotice(text string) {
	m.notices = append(m.notices, notice{text: text, isErr: true})
}

// toast queues a toast and starts the expiry ticker when it is idle.
func (m *Model) toast(kind components.ToastKind, text string) tea.Cmd {
	m.toasts.Add(kind, text)
	if m.toastTicker {
		return nil
	}
	m.toastTicker = true
	return components.ToastTickCmd()
}
