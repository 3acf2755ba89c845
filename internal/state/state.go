// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package state is the single owner of client-persisted state: the current
// workspace, each workspace's chat thread, dismissed task ids and recent
// search queries.
//
// Init hydrates everything from storage once at startup. Getters read
// memory; every setter writes through to storage before returning.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/ragterm/internal/logging"
	"github.com/jeranaias/ragterm/internal/storage"
)

// Namespace prefixes every persisted key.
const Namespace = "ragterm."

// MaxRecentSearches caps the recent search list.
const MaxRecentSearches = 5

const (
	keyCurrentWorkspace = Namespace + "current_workspace"
	keyThreadPrefix     = Namespace + "thread."
	keyDismissedTasks   = Namespace + "dismissed_tasks"
	keyRecentSearches   = Namespace + "recent_searches"
)

// ErrNotInitialized is returned when the store is used before Init.
var ErrNotInitialized = errors.New("state store not initialized")

// =============================================================================
// STORE
// =============================================================================

// Store holds the hydrated client state.
type Store struct {
	kv  storage.KV
	log *log.Logger

	mu        sync.RWMutex
	ready     bool
	workspace string
	threads   map[string]string
	dismissed map[string]bool
	recent    []string
	flushCtx  context.Context
}

// New creates a store over kv. Call Init before use.
func New(kv storage.KV) *Store {
	return &Store{
		kv:        kv,
		log:       logging.Default(),
		threads:   make(map[string]string),
		dismissed: make(map[string]bool),
		flushCtx:  context.Background(),
	}
}

// WithLogger replaces the logger used to report unreadable values.
func (s *Store) WithLogger(l *log.Logger) *Store {
	if l != nil {
		s.log = l
	}
	return s
}

// Init hydrates the store from storage. Calling it again reloads.
func (s *Store) Init(ctx context.Context) error {
	workspace, _, err := s.kv.Get(ctx, keyCurrentWorkspace)
	if err != nil {
		return fmt.Errorf("load current workspace: %w", err)
	}

	threadKeys, err := s.kv.List(ctx, keyThreadPrefix)
	if err != nil {
		return fmt.Errorf("load threads: %w", err)
	}
	threads := make(map[string]string, len(threadKeys))
	for k, v := range threadKeys {
		threads[strings.TrimPrefix(k, keyThreadPrefix)] = v
	}

	dismissedList, err := loadJSON[[]string](ctx, s, keyDismissedTasks)
	if err != nil {
		return err
	}
	dismissed := make(map[string]bool, len(dismissedList))
	for _, id := range dismissedList {
		dismissed[id] = true
	}

	recent, err := loadJSON[[]string](ctx, s, keyRecentSearches)
	if err != nil {
		return err
	}
	if len(recent) > MaxRecentSearches {
		recent = recent[:MaxRecentSearches]
	}

	s.mu.Lock()
	s.workspace = workspace
	s.threads = threads
	s.dismissed = dismissed
	s.recent = recent
	s.ready = true
	s.mu.Unlock()
	return nil
}

// loadJSON decodes key as a T. A missing key yields the zero value. An
// unreadable value is logged and also yields the zero value, so one bad
// entry never blocks startup and never half-fills the result.
func loadJSON[T any](ctx context.Context, s *Store, key string) (T, error) {
	var zero T
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || raw == "" {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		s.log.Warn("ignoring unreadable client state", "key", key, "err", err)
		return zero, nil
	}
	return v, nil
}

func (s *Store) saveJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.kv.Set(s.flushCtx, key, string(data))
}

// Ready reports whether Init has completed.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// =============================================================================
// WORKSPACE AND THREADS
// =============================================================================

// CurrentWorkspace returns the selected workspace id, or "".
func (s *Store) CurrentWorkspace() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workspace
}

// SetCurrentWorkspace selects a workspace. An empty id clears the selection.
func (s *Store) SetCurrentWorkspace(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotInitialized
	}

	s.workspace = id
	if id == "" {
		return s.kv.Delete(s.flushCtx, keyCurrentWorkspace)
	}
	return s.kv.Set(s.flushCtx, keyCurrentWorkspace, id)
}

// ThreadID returns the chat thread remembered for a workspace.
func (s *Store) ThreadID(workspaceID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threads[workspaceID]
}

// SetThreadID remembers the chat thread for a workspace.
func (s *Store) SetThreadID(workspaceID, threadID string) error {
	if threadID == "" {
		return s.ClearThread(workspaceID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotInitialized
	}

	s.threads[workspaceID] = threadID
	return s.kv.Set(s.flushCtx, keyThreadPrefix+workspaceID, threadID)
}

// ClearThread forgets the chat thread for a workspace.
func (s *Store) ClearThread(workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotInitialized
	}

	delete(s.threads, workspaceID)
	return s.kv.Delete(s.flushCtx, keyThreadPrefix+workspaceID)
}

// =============================================================================
// DISMISSED TASKS
// =============================================================================

// Dismissed returns the dismissed task ids in sorted order.
func (s *Store) Dismissed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dismissedListLocked()
}

func (s *Store) dismissedListLocked() []string {
	ids := make([]string, 0, len(s.dismissed))
	for id := range s.dismissed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsDismissed reports whether the task id was dismissed.
func (s *Store) IsDismissed(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dismissed[id]
}

// Dismiss adds a task id to the dismissed set.
func (s *Store) Dismiss(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotInitialized
	}
	if s.dismissed[id] {
		return nil
	}

	s.dismissed[id] = true
	return s.saveJSON(keyDismissedTasks, s.dismissedListLocked())
}

// Undismiss removes a task id from the dismissed set.
func (s *Store) Undismiss(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotInitialized
	}
	if !s.dismissed[id] {
		return nil
	}

	delete(s.dismissed, id)
	return s.saveJSON(keyDismissedTasks, s.dismissedListLocked())
}

// =============================================================================
// RECENT SEARCHES
// =============================================================================

// RecentSearches returns up to MaxRecentSearches queries, most recent first.
func (s *Store) RecentSearches() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.recent...)
}

// AddRecentSearch moves q to the front of the recent list. Blank queries
// are ignored.
func (s *Store) AddRecentSearch(q string) error {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotInitialized
	}

	next := make([]string, 0, MaxRecentSearches)
	next = append(next, q)
	for _, prev := range s.recent {
		if prev == q {
			continue
		}
		if len(next) == MaxRecentSearches {
			break
		}
		next = append(next, prev)
	}
	s.recent = next
	return s.saveJSON(keyRecentSearches, s.recent)
}

// ClearRecentSearches empties the recent list.
func (s *Store) ClearRecentSearches() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotInitialized
	}

	s.recent = nil
	return s.kv.Delete(s.flushCtx, keyRecentSearches)
}
