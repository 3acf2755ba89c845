// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragterm/internal/logging"
	"github.com/jeranaias/ragterm/internal/storage"
)

func newStore(t *testing.T, kv storage.KV) *Store {
	t.Helper()
	s := New(kv)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestStore_RequiresInit(t *testing.T) {
	s := New(storage.NewMemoryKV())
	if err := s.Dismiss("t1"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if err := s.SetCurrentWorkspace("ws"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestStore_RecentSearches(t *testing.T) {
	s := newStore(t, storage.NewMemoryKV())

	for _, q := range []string{"a", "b", "c", "d", "e", "f"} {
		require.NoError(t, s.AddRecentSearch(q))
	}
	assert.Equal(t, []string{"f", "e", "d", "c", "b"}, s.RecentSearches())

	// Repeating a query moves it to the front without duplicating it
	require.NoError(t, s.AddRecentSearch("c"))
	assert.Equal(t, []string{"c", "f", "e", "d", "b"}, s.RecentSearches())

	require.NoError(t, s.AddRecentSearch("   "))
	assert.Len(t, s.RecentSearches(), MaxRecentSearches)

	require.NoError(t, s.ClearRecentSearches())
	assert.Empty(t, s.RecentSearches())
}

func TestStore_Threads(t *testing.T) {
	s := newStore(t, storage.NewMemoryKV())

	require.NoError(t, s.SetThreadID("ws1", "t1"))
	require.NoError(t, s.SetThreadID("ws2", "t2"))
	assert.Equal(t, "t1", s.ThreadID("ws1"))
	assert.Equal(t, "t2", s.ThreadID("ws2"))

	require.NoError(t, s.SetThreadID("ws1", ""))
	assert.Equal(t, "", s.ThreadID("ws1"))
}

func TestStore_Dismissed(t *testing.T) {
	s := newStore(t, storage.NewMemoryKV())

	require.NoError(t, s.Dismiss("b"))
	require.NoError(t, s.Dismiss("a"))
	require.NoError(t, s.Dismiss("a"))
	assert.Equal(t, []string{"a", "b"}, s.Dismissed())
	assert.True(t, s.IsDismissed("a"))

	require.NoError(t, s.Undismiss("a"))
	require.NoError(t, s.Undismiss("missing"))
	assert.Equal(t, []string{"b"}, s.Dismissed())
}

func TestStore_FlushesEveryMutation(t *testing.T) {
	kv := storage.NewMemoryKV()
	s := newStore(t, kv)

	require.NoError(t, s.SetCurrentWorkspace("ws1"))
	require.NoError(t, s.SetThreadID("ws1", "t1"))
	require.NoError(t, s.Dismiss("task-1"))
	require.NoError(t, s.AddRecentSearch("vector db"))

	assert.Equal(t, []string{
		"ragterm.current_workspace",
		"ragterm.dismissed_tasks",
		"ragterm.recent_searches",
		"ragterm.thread.ws1",
	}, kv.Keys())

	// A second store over the same storage sees everything after Init
	other := newStore(t, kv)
	assert.Equal(t, "ws1", other.CurrentWorkspace())
	assert.Equal(t, "t1", other.ThreadID("ws1"))
	assert.True(t, other.IsDismissed("task-1"))
	assert.Equal(t, []string{"vector db"}, other.RecentSearches())
}

func TestStore_PersistsOnSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), storage.DefaultFileName)

	kv, err := storage.OpenSQLite(path)
	require.NoError(t, err)
	s := newStore(t, kv)
	require.NoError(t, s.SetCurrentWorkspace("ws9"))
	require.NoError(t, s.Dismiss("t-failed"))
	require.NoError(t, kv.Close())

	kv2, err := storage.OpenSQLite(path)
	require.NoError(t, err)
	defer kv2.Close()

	s2 := newStore(t, kv2)
	assert.Equal(t, "ws9", s2.CurrentWorkspace())
	assert.Equal(t, []string{"t-failed"}, s2.Dismissed())
}

func TestStore_CorruptValuesIgnored(t *testing.T) {
	kv := storage.NewMemoryKV()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "ragterm.dismissed_tasks", "{not json"))
	require.NoError(t, kv.Set(ctx, "ragterm.recent_searches", `["a","b","c","d","e","f","g"]`))

	s := newStore(t, kv)
	assert.Empty(t, s.Dismissed())
	assert.Len(t, s.RecentSearches(), MaxRecentSearches)
}

func TestStore_MismatchedValueIsDroppedAndLogged(t *testing.T) {
	kv := storage.NewMemoryKV()
	ctx := context.Background()
	// Decodes "a" before failing on the number
	require.NoError(t, kv.Set(ctx, "ragterm.recent_searches", `["a", 3, "b"]`))
	require.NoError(t, kv.Set(ctx, "ragterm.dismissed_tasks", `{"id": "t1"}`))

	var logs bytes.Buffer
	s := New(kv).WithLogger(logging.New(&logs, log.WarnLevel))
	require.NoError(t, s.Init(ctx))

	assert.Empty(t, s.RecentSearches())
	assert.Empty(t, s.Dismissed())
	assert.Contains(t, logs.String(), "ragterm.recent_searches")
	assert.Contains(t, logs.String(), "ragterm.dismissed_tasks")
}
