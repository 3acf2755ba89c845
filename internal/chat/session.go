// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives conversation turns: it appends the user message,
// streams the reply into an accumulator and keeps the thread choice for
// each workspace.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/jeranaias/ragterm/internal/api"
	"github.com/jeranaias/ragterm/internal/logging"
	"github.com/jeranaias/ragterm/internal/model"
	"github.com/jeranaias/ragterm/internal/stream"
)

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy is returned while a turn is streaming.
	ErrBusy = errors.New("a reply is still streaming")

	// ErrAbandoned ends a turn whose conversation was left for a new
	// thread, another thread or another workspace. It wraps with
	// context.Canceled.
	ErrAbandoned = errors.New("conversation left while a reply was streaming")
)

// Streamer is the backend surface a session needs. *api.Client implements it.
type Streamer interface {
	StreamChat(ctx context.Context, req api.ChatRequest, fn stream.Handler) error
	History(ctx context.Context, threadID string) ([]model.Message, error)
}

// ThreadState remembers the thread of each workspace. *state.Store
// implements it.
type ThreadState interface {
	ThreadID(workspaceID string) string
	SetThreadID(workspaceID, threadID string) error
	ClearThread(workspaceID string) error
}

// TurnError is a turn that ended early. Partial holds whatever arrived
// before the failure; it is already finalized in the conversation.
type TurnError struct {
	Partial *model.Message
	Err     error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("chat turn failed: %v", e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the backend aborted the stream.
func (e *TurnError) IsFatal() bool {
	var fatal *stream.FatalError
	return errors.As(e.Err, &fatal)
}

// Options configures a Session.
type Options struct {
	WorkspaceID   string
	ShowReasoning bool
	Logger        *log.Logger
}

// =============================================================================
// SESSION
// =============================================================================

// Session owns one conversation view and its in-flight turn.
type Session struct {
	client Streamer
	conv   *model.Conversation
	st     ThreadState
	log    *log.Logger

	mu            sync.Mutex
	workspaceID   string
	threadID      string
	loading       bool
	showReasoning bool
	turn          turnGuard
}

// NewSession creates a session for opts.WorkspaceID. It does not load
// history; call Restore.
func NewSession(client Streamer, conv *model.Conversation, st ThreadState, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Session{
		client:        client,
		conv:          conv,
		st:            st,
		log:           logger,
		workspaceID:   opts.WorkspaceID,
		threadID:      st.ThreadID(opts.WorkspaceID),
		showReasoning: opts.ShowReasoning,
	}
}

// Conversation returns the message store the session writes to.
func (s *Session) Conversation() *model.Conversation {
	return s.conv
}

// Loading reports whether a reply is streaming.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// ThreadID returns the active thread id, or "" before the first turn.
func (s *Session) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// WorkspaceID returns the active workspace id.
func (s *Session) WorkspaceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspaceID
}

// ShowReasoning reports whether reasoning steps are displayed.
func (s *Session) ShowReasoning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showReasoning
}

// ToggleReasoning flips reasoning display and returns the new value.
func (s *Session) ToggleReasoning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showReasoning = !s.showReasoning
	return s.showReasoning
}

// =============================================================================
// TURNS
// =============================================================================

// Submit sends one user message and blocks until the reply finishes.
// The user message is in the conversation before any network I/O. The
// assistant message is finalized however the stream ends.
func (s *Session) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loading = true
	if s.threadID == "" {
		s.threadID = uuid.NewString()
	}
	threadID, workspaceID := s.threadID, s.workspaceID
	turnCtx, release := s.turn.begin(ctx)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		release()
	}()

	s.conv.AppendUser(text)

	if err := s.st.SetThreadID(workspaceID, threadID); err != nil {
		s.log.Warn("could not persist thread", "thread", threadID, "err", err)
	}

	acc := model.NewAccumulator(s.conv)
	err := s.client.StreamChat(turnCtx, api.ChatRequest{
		Message:     text,
		ThreadID:    threadID,
		WorkspaceID: workspaceID,
	}, func(ev model.Event) error {
		_, applyErr := acc.Apply(ev)
		return applyErr
	})

	msg, started := acc.Finalize()
	if err == nil {
		return nil
	}

	if errors.Is(context.Cause(turnCtx), ErrAbandoned) {
		err = fmt.Errorf("%w: %w", ErrAbandoned, err)
	}
	s.log.Debug("chat turn ended early", "thread", threadID, "err", err)
	turnErr := &TurnError{Err: err}
	if started {
		turnErr.Partial = &msg
	}
	return turnErr
}

// Cancel aborts the streaming turn, if any. Content received so far stays.
func (s *Session) Cancel() {
	s.turn.abort(context.Canceled)
}

// abandonTurn stops the streaming turn and waits until Submit has
// finalized its partial reply and cleared loading.
func (s *Session) abandonTurn() {
	if done := s.turn.abort(ErrAbandoned); done != nil {
		<-done
	}
}

// =============================================================================
// THREADS AND WORKSPACES
// =============================================================================

// NewThread starts a fresh conversation. A streaming reply is aborted
// first. The id is persisted with the first message.
func (s *Session) NewThread() (string, error) {
	s.abandonTurn()

	s.mu.Lock()
	defer s.mu.Unlock()
	// Only a turn submitted after the abort can be loading here
	if s.loading {
		return "", ErrBusy
	}

	s.conv.Clear()
	s.threadID = uuid.NewString()
	if err := s.st.ClearThread(s.workspaceID); err != nil {
		return s.threadID, fmt.Errorf("forget thread: %w", err)
	}
	return s.threadID, nil
}

// SwitchThread loads an existing thread's history, aborting a streaming
// reply first.
func (s *Session) SwitchThread(ctx context.Context, threadID string) error {
	s.abandonTurn()

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	workspaceID := s.workspaceID
	s.mu.Unlock()

	history, err := s.client.History(ctx, threadID)
	if err != nil {
		return fmt.Errorf("load thread %s: %w", threadID, err)
	}

	s.mu.Lock()
	s.threadID = threadID
	s.mu.Unlock()

	s.conv.Load(history)
	return s.st.SetThreadID(workspaceID, threadID)
}

// SwitchWorkspace selects a workspace and restores its remembered thread,
// aborting a streaming reply first.
func (s *Session) SwitchWorkspace(ctx context.Context, workspaceID string) error {
	s.abandonTurn()

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.workspaceID = workspaceID
	s.threadID = ""
	s.mu.Unlock()

	s.conv.Clear()
	return s.Restore(ctx)
}

// Restore reloads the remembered thread of the current workspace. A thread
// the backend no longer knows is forgotten.
func (s *Session) Restore(ctx context.Context) error {
	workspaceID := s.WorkspaceID()
	threadID := s.st.ThreadID(workspaceID)
	if threadID == "" {
		return nil
	}

	err := s.SwitchThread(ctx, threadID)
	if errors.Is(err, api.ErrNotFound) {
		s.log.Info("remembered thread is gone", "thread", threadID)
		s.mu.Lock()
		s.threadID = ""
		s.mu.Unlock()
		return s.st.ClearThread(workspaceID)
	}
	return err
}

// =============================================================================
// CITATIONS
// =============================================================================

// Citation resolves marker [n] in a message. The second result is false
// when the message or the source no longer exists.
func (s *Session) Citation(messageID string, n int) (model.Source, bool) {
	msg, ok := s.conv.Get(messageID)
	if !ok {
		return model.Source{}, false
	}
	return msg.Citation(n)
}

// LastCitation resolves [n] in the latest assistant message.
func (s *Session) LastCitation(n int) (model.Source, bool) {
	msg, ok := s.conv.LastAssistant()
	if !ok {
		return model.Source{}, false
	}
	return msg.Citation(n)
}
