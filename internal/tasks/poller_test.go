// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragterm/internal/logging"
	"github.com/jeranaias/ragterm/internal/model"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeSource struct {
	mu       sync.Mutex
	tasks    []Task
	listErr  error
	calls    int
	retried  []string
	canceled []string
}

func (f *fakeSource) ListTasks(ctx context.Context, taskType string) ([]Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Task(nil), f.tasks...), nil
}

func (f *fakeSource) RetryTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, id)
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Status = StatusPending
		}
	}
	return nil
}

func (f *fakeSource) CancelTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, id)
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Status = StatusCanceled
		}
	}
	return nil
}

func (f *fakeSource) set(tasks ...Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = tasks
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memDismissStore struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newMemDismissStore(ids ...string) *memDismissStore {
	s := &memDismissStore{ids: map[string]bool{}}
	for _, id := range ids {
		s.ids[id] = true
	}
	return s
}

func (s *memDismissStore) Dismissed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

func (s *memDismissStore) Dismiss(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = true
	return nil
}

func (s *memDismissStore) Undismiss(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
	return nil
}

func (s *memDismissStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[id]
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPoller(src Source, store DismissStore) *Poller {
	return NewPoller(src, store, Options{
		Interval: 10 * time.Millisecond,
		Now:      func() time.Time { return testNow },
		Logger:   logging.Discard(),
	})
}

func recent() model.Timestamp {
	return model.Timestamp{Time: testNow.Add(-5 * time.Second)}
}

// =============================================================================
// POLLER TESTS
// =============================================================================

func TestPoller_RefreshBuildsViews(t *testing.T) {
	src := &fakeSource{}
	src.set(
		Task{ID: "a", Status: StatusProcessing},
		Task{ID: "b", Status: StatusFailed},
		Task{ID: "c", Status: StatusCompleted, UpdatedAt: recent()},
	)
	p := newTestPoller(src, newMemDismissStore())

	require.False(t, p.Ready())
	p.Refresh(context.Background())
	require.True(t, p.Ready())

	v := p.Views()
	assertIDs(t, "active", v.Active, "a")
	assertIDs(t, "failed", v.Failed, "b")
	assertIDs(t, "recently completed", v.RecentlyCompleted, "c")
	assert.True(t, v.HasActiveWork)
}

func TestPoller_HydratesDismissedBeforeFirstPoll(t *testing.T) {
	src := &fakeSource{}
	src.set(Task{ID: "old", Status: StatusFailed}, Task{ID: "new", Status: StatusFailed})
	p := newTestPoller(src, newMemDismissStore("old"))

	p.Refresh(context.Background())
	assertIDs(t, "failed", p.Views().Failed, "new")

	select {
	case n := <-p.Notifications():
		assert.Equal(t, "new", n.TaskID)
	default:
		t.Fatal("expected a notification for the new failure")
	}
	select {
	case n := <-p.Notifications():
		t.Errorf("unexpected notification for %s", n.TaskID)
	default:
	}
}

func TestPoller_ErrorsAreSwallowed(t *testing.T) {
	src := &fakeSource{}
	src.set(Task{ID: "a", Status: StatusProcessing})
	p := newTestPoller(src, newMemDismissStore())
	p.Refresh(context.Background())

	src.mu.Lock()
	src.listErr = errors.New("connection refused")
	src.mu.Unlock()

	p.Refresh(context.Background())
	assertIDs(t, "active", p.Views().Active, "a")
}

func TestPoller_DismissHidesImmediately(t *testing.T) {
	src := &fakeSource{}
	src.set(Task{ID: "f", Status: StatusFailed})
	store := newMemDismissStore()
	p := newTestPoller(src, store)
	p.Refresh(context.Background())

	updates, cancel := p.Subscribe()
	defer cancel()

	require.NoError(t, p.Dismiss("f"))
	assert.Equal(t, 0, p.Views().Len())
	assert.True(t, store.has("f"), "dismissal should be persisted")
	assert.Equal(t, 0, src.callCount()-1, "dismiss must not hit the network")

	select {
	case v := <-updates:
		assert.Equal(t, 0, v.Len())
	case <-time.After(time.Second):
		t.Fatal("expected a views update after dismiss")
	}
}

func TestPoller_StaleSnapshotDoesNotResurrectDismissed(t *testing.T) {
	src := &fakeSource{}
	src.set(Task{ID: "f", Status: StatusFailed})
	p := newTestPoller(src, newMemDismissStore())
	p.Refresh(context.Background())

	updates, cancel := p.Subscribe()
	defer cancel()

	// A poll computes its views, then loses the publish race to Dismiss
	p.mu.Lock()
	stale, staleGen := p.recomputeLocked()
	p.mu.Unlock()
	require.NoError(t, p.Dismiss("f"))
	p.publish(stale, staleGen)

	select {
	case v := <-updates:
		assert.Equal(t, 0, v.Len(), "subscriber got the pre-dismiss snapshot")
	case <-time.After(time.Second):
		t.Fatal("expected a views update after dismiss")
	}
	select {
	case v := <-updates:
		t.Errorf("unexpected extra snapshot with %d tasks", v.Len())
	default:
	}
}

func TestPoller_RetryUndismissesAndRefetches(t *testing.T) {
	src := &fakeSource{}
	src.set(Task{ID: "f", Status: StatusFailed})
	store := newMemDismissStore()
	p := newTestPoller(src, store)
	p.Refresh(context.Background())
	require.NoError(t, p.Dismiss("f"))

	before := src.callCount()
	require.NoError(t, p.Retry(context.Background(), "f"))

	assert.Equal(t, []string{"f"}, src.retried)
	assert.False(t, store.has("f"))
	assert.Greater(t, src.callCount(), before, "retry should refetch immediately")
	assertIDs(t, "active", p.Views().Active, "f")
	assert.Empty(t, p.Views().Failed)
}

func TestPoller_CancelAutoDismisses(t *testing.T) {
	src := &fakeSource{}
	src.set(Task{ID: "a", Status: StatusProcessing})
	store := newMemDismissStore()
	p := newTestPoller(src, store)
	p.Refresh(context.Background())

	require.NoError(t, p.Cancel(context.Background(), "a"))
	assert.Equal(t, []string{"a"}, src.canceled)
	assert.True(t, store.has("a"))
	assert.True(t, p.IsDismissed("a"))
	assert.False(t, p.Views().HasActiveWork)
}

func TestPoller_FailureNotifiesOnce(t *testing.T) {
	src := &fakeSource{}
	src.set(Task{ID: "f", Status: StatusFailed, Message: "parse error", ErrorCode: "INVALID_FILENAME",
		Metadata: map[string]interface{}{"filename": "bad.pdf"}})
	p := newTestPoller(src, newMemDismissStore())

	for i := 0; i < 3; i++ {
		p.Refresh(context.Background())
	}

	var got []Notification
	for {
		select {
		case n := <-p.Notifications():
			got = append(got, n)
			continue
		default:
		}
		break
	}

	require.Len(t, got, 1)
	assert.Equal(t, LevelError, got[0].Level)
	assert.Equal(t, "bad.pdf failed", got[0].Title)
	assert.Equal(t, "parse error", got[0].Message)
	assert.Equal(t, "INVALID_FILENAME", got[0].ErrorCode)
}

func TestPoller_IgnoresBackwardTransitions(t *testing.T) {
	src := &fakeSource{}
	src.set(Task{ID: "a", Status: StatusProcessing})
	p := newTestPoller(src, newMemDismissStore())
	p.Refresh(context.Background())

	src.set(Task{ID: "a", Status: StatusPending})
	p.Refresh(context.Background())

	active := p.Views().Active
	require.Len(t, active, 1)
	assert.Equal(t, StatusProcessing, active[0].Status)
}

func TestPoller_StartStop(t *testing.T) {
	src := &fakeSource{}
	src.set(Task{ID: "a", Status: StatusPending})
	p := newTestPoller(src, newMemDismissStore())

	p.Start(context.Background())
	require.Eventually(t, func() bool { return src.callCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	p.Stop()

	n := src.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, src.callCount(), "no polls after Stop")
	p.Stop()
}
