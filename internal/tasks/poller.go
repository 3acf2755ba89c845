// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/ragterm/internal/logging"
)

// DefaultInterval is the fixed polling cadence.
const DefaultInterval = 2 * time.Second

// notificationBuffer bounds the notification channel.
const notificationBuffer = 32

// =============================================================================
// COLLABORATORS
// =============================================================================

// Source is the server side of task tracking. *api.Client implements it.
type Source interface {
	ListTasks(ctx context.Context, taskType string) ([]Task, error)
	RetryTask(ctx context.Context, id string) error
	CancelTask(ctx context.Context, id string) error
}

// DismissStore persists the ids the user has acknowledged.
// *state.Store implements it.
type DismissStore interface {
	Dismissed() []string
	Dismiss(id string) error
	Undismiss(id string) error
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notification is sent once per task id when it fails or completes.
type Notification struct {
	TaskID    string
	Level     Level
	Title     string
	Message   string
	ErrorCode string
}

// =============================================================================
// POLLER
// =============================================================================

// Options configures a Poller.
type Options struct {
	Interval        time.Duration
	CompletedWindow time.Duration
	TaskType        string
	Now             func() time.Time
	Logger          *log.Logger
}

// DefaultOptions polls ingestion tasks every 2s with a 60s completed window.
func DefaultOptions() Options {
	return Options{
		Interval:        DefaultInterval,
		CompletedWindow: DefaultCompletedWindow,
		TaskType:        DefaultType,
		Now:             time.Now,
	}
}

// Poller periodically fetches tasks and republishes them as Views.
//
// Only the poller writes the task list. Views, Subscribe and Notifications
// are safe to use from any goroutine.
type Poller struct {
	src   Source
	store DismissStore
	opts  Options
	log   *log.Logger

	mu         sync.RWMutex
	tasks      []Task
	lastStatus map[string]Status
	dismissed  map[string]bool
	notified   map[string]bool
	views      Views
	viewsGen   uint64
	ready      bool

	subMu   sync.Mutex
	subs    map[int]chan Views
	nextSub int
	sentGen uint64

	notifyChan chan Notification

	pollMu   sync.Mutex
	stop     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	wg       sync.WaitGroup
}

// NewPoller creates a poller. The dismissed set is hydrated from store
// immediately, so it is trusted before the first poll result.
func NewPoller(src Source, store DismissStore, opts Options) *Poller {
	def := DefaultOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.CompletedWindow <= 0 {
		opts.CompletedWindow = def.CompletedWindow
	}
	if opts.TaskType == "" {
		opts.TaskType = def.TaskType
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	p := &Poller{
		src:        src,
		store:      store,
		opts:       opts,
		log:        logger.With("component", "tasks"),
		lastStatus: make(map[string]Status),
		dismissed:  make(map[string]bool),
		notified:   make(map[string]bool),
		subs:       make(map[int]chan Views),
		notifyChan: make(chan Notification, notificationBuffer),
		stop:       make(chan struct{}),
	}
	if store != nil {
		for _, id := range store.Dismissed() {
			p.dismissed[id] = true
		}
	}
	return p
}

// =============================================================================
// POLLER LIFECYCLE
// =============================================================================

// Start polls immediately and then every interval until Stop or ctx is done.
func (p *Poller) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	p.wg.Add(1)
	go p.loop(ctx)
}

// Stop stops the polling loop and waits for it to exit.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.Refresh(ctx)
	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh runs one poll now. Poll failures are logged at debug level and
// otherwise ignored; the previous views stay in place.
func (p *Poller) Refresh(ctx context.Context) {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	list, err := p.src.ListTasks(ctx, p.opts.TaskType)
	if err != nil {
		p.log.Debug("task poll failed", "err", err)
		return
	}

	p.mu.Lock()
	p.tasks = p.guardTransitionsLocked(list)
	p.ready = true
	views, gen := p.recomputeLocked()
	pending := p.collectNotificationsLocked()
	p.mu.Unlock()

	p.publish(views, gen)
	for _, n := range pending {
		p.sendNotification(n)
	}
}

// guardTransitionsLocked keeps the last trusted status when a snapshot
// would move a task backwards.
func (p *Poller) guardTransitionsLocked(list []Task) []Task {
	out := make([]Task, 0, len(list))
	for _, t := range list {
		t = t.Clone()
		if last, ok := p.lastStatus[t.ID]; ok && !ValidTransition(last, t.Status) {
			p.log.Warn("ignoring backward task transition", "task", t.ID, "from", last, "to", t.Status)
			t.Status = last
		}
		p.lastStatus[t.ID] = t.Status
		out = append(out, t)
	}
	return out
}

// recomputeLocked rebuilds the views and numbers them so publish can
// drop a snapshot that lost the race to a newer one.
func (p *Poller) recomputeLocked() (Views, uint64) {
	p.views = Partition(p.tasks, p.dismissed, p.opts.Now(), p.opts.CompletedWindow)
	p.viewsGen++
	return p.views, p.viewsGen
}

func (p *Poller) collectNotificationsLocked() []Notification {
	var out []Notification
	for _, t := range p.tasks {
		if p.dismissed[t.ID] {
			continue
		}
		key := t.ID + ":" + string(t.Status)
		if p.notified[key] {
			continue
		}
		switch t.Status {
		case StatusFailed:
			msg := t.Message
			if msg == "" {
				msg = "The background job did not finish."
			}
			out = append(out, Notification{
				TaskID:    t.ID,
				Level:     LevelError,
				Title:     fmt.Sprintf("%s failed", t.Label()),
				Message:   msg,
				ErrorCode: t.ErrorCode,
			})
		case StatusCompleted:
			if t.Age(p.opts.Now()) > p.opts.CompletedWindow {
				continue
			}
			out = append(out, Notification{
				TaskID:  t.ID,
				Level:   LevelInfo,
				Title:   fmt.Sprintf("%s ready", t.Label()),
				Message: t.Message,
			})
		default:
			continue
		}
		p.notified[key] = true
	}
	return out
}

// =============================================================================
// USER OPERATIONS
// =============================================================================

// Retry asks the server to rerun a task. On success the id is un-dismissed
// and the task list is refetched immediately.
func (p *Poller) Retry(ctx context.Context, id string) error {
	if err := p.src.RetryTask(ctx, id); err != nil {
		return err
	}

	p.mu.Lock()
	delete(p.dismissed, id)
	// The server resets the task, so its status may legitimately restart
	delete(p.lastStatus, id)
	for _, s := range []Status{StatusFailed, StatusCompleted} {
		delete(p.notified, id+":"+string(s))
	}
	p.mu.Unlock()

	var storeErr error
	if p.store != nil {
		storeErr = p.store.Undismiss(id)
	}
	p.Refresh(ctx)
	return storeErr
}

// Cancel asks the server to cancel a task. Cancellation dismisses the task.
func (p *Poller) Cancel(ctx context.Context, id string) error {
	if err := p.src.CancelTask(ctx, id); err != nil {
		return err
	}
	return p.Dismiss(id)
}

// Dismiss hides a task from every view. It makes no network call.
func (p *Poller) Dismiss(id string) error {
	p.mu.Lock()
	p.dismissed[id] = true
	var views Views
	var gen uint64
	ready := p.ready
	if ready {
		views, gen = p.recomputeLocked()
	}
	p.mu.Unlock()

	if ready {
		p.publish(views, gen)
	}
	if p.store != nil {
		return p.store.Dismiss(id)
	}
	return nil
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Views returns the latest views. Before the first successful poll all views
// are empty.
func (p *Poller) Views() Views {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.views
}

// Ready reports whether at least one poll has succeeded.
func (p *Poller) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// IsDismissed reports whether the user dismissed the task.
func (p *Poller) IsDismissed(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dismissed[id]
}

// Notifications returns the notification channel.
func (p *Poller) Notifications() <-chan Notification {
	return p.notifyChan
}

// Subscribe returns a channel that receives every new Views snapshot and a
// function that unsubscribes.
func (p *Poller) Subscribe() (<-chan Views, func()) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	id := p.nextSub
	p.nextSub++
	ch := make(chan Views, 1)
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.subMu.Lock()
			delete(p.subs, id)
			p.subMu.Unlock()
			close(ch)
		})
	}
}

// publish delivers views to subscribers, replacing any unread snapshot.
// Snapshots older than the last one sent are dropped.
func (p *Poller) publish(v Views, gen uint64) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	if gen <= p.sentGen {
		return
	}
	p.sentGen = gen

	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// sendNotification sends without blocking the poll loop.
func (p *Poller) sendNotification(n Notification) {
	select {
	case p.notifyChan <- n:
	default:
		p.log.Warn("notification channel full, dropped notification", "task", n.TaskID)
	}
}
