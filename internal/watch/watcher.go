// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watch uploads files as they appear in a folder.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/ragterm/internal/api"
	"github.com/jeranaias/ragterm/internal/logging"
)

// DefaultDebounce is how long a file must stay quiet before upload.
const DefaultDebounce = 500 * time.Millisecond

// ErrSkipped marks a file that was seen but not uploaded.
var ErrSkipped = errors.New("file skipped")

// Uploader sends one file to the backend. *api.Client implements it.
type Uploader interface {
	Upload(ctx context.Context, req api.UploadRequest) (*api.UploadResult, error)
}

// Result reports one settled file.
type Result struct {
	Path   string
	Upload *api.UploadResult
	Err    error
}

// Options configures a Watcher.
type Options struct {
	Debounce    time.Duration
	Strategy    api.Strategy
	WorkspaceID string
	Logger      *log.Logger
}

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// Watcher uploads created or rewritten files under a directory tree.
type Watcher struct {
	root     string
	up       Uploader
	opts     Options
	log      *log.Logger
	watcher  *fsnotify.Watcher
	results  chan Result
	mu       sync.Mutex
	pending  map[string]time.Time // path -> last change
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	closeErr error
	once     sync.Once
}

// New creates a watcher for root. Call Start to begin.
func New(root string, up Uploader, opts Options) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Watcher{
		root:    root,
		up:      up,
		opts:    opts,
		log:     logger,
		watcher: fw,
		results: make(chan Result, 16),
		pending: make(map[string]time.Time),
	}, nil
}

// Results delivers one Result per settled file. It is closed by Close.
func (w *Watcher) Results() <-chan Result {
	return w.results
}

// Start registers the tree and begins processing events.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.processPending(ctx)
	return nil
}

// Close stops watching and closes Results once in-flight uploads finish.
func (w *Watcher) Close() error {
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		w.closeErr = w.watcher.Close()
		w.wg.Wait()
		close(w.results)
	})
	return w.closeErr
}

// addRecursive adds a directory and its visible subdirectories.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != dir && isHidden(filepath.Base(path)) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.log.Warn("cannot watch directory", "dir", path, "err", err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !isHidden(filepath.Base(event.Name)) {
						_ = w.addRecursive(event.Name)
					}
					continue
				}
			}

			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				w.handleFileChange(event.Name)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.mu.Lock()
				delete(w.pending, event.Name)
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) handleFileChange(path string) {
	if isIgnored(filepath.Base(path)) {
		return
	}
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// processPending uploads files whose last change is older than the debounce.
func (w *Watcher) processPending(ctx context.Context) {
	defer w.wg.Done()

	tick := w.opts.Debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var settled []string
			for path, changed := range w.pending {
				if now.Sub(changed) >= w.opts.Debounce {
					settled = append(settled, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range settled {
				res := w.uploadFile(ctx, path)
				select {
				case w.results <- res:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (w *Watcher) uploadFile(ctx context.Context, path string) Result {
	name := api.NormalizeFilename(filepath.Base(path))
	if err := api.ValidateFilename(name); err != nil {
		w.log.Warn("skipping file with invalid name", "path", path, "err", err)
		return Result{Path: path, Err: fmt.Errorf("%w: %v", ErrSkipped, err)}
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{Path: path, Err: err}
	}
	defer f.Close()

	res, err := w.up.Upload(ctx, api.UploadRequest{
		Filename:    name,
		Reader:      f,
		WorkspaceID: w.opts.WorkspaceID,
		Strategy:    w.opts.Strategy,
	})
	if err != nil {
		w.log.Debug("watch upload failed", "path", path, "err", err)
		return Result{Path: path, Err: err}
	}
	w.log.Info("uploaded", "path", path, "task", res.TaskID)
	return Result{Path: path, Upload: res}
}

// =============================================================================
// FILTERS
// =============================================================================

var tempSuffixes = []string{"~", ".tmp", ".temp", ".swp", ".swx", ".part", ".crdownload", ".download"}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// isIgnored reports hidden files and editor or browser temp files.
func isIgnored(name string) bool {
	if isHidden(name) || strings.HasPrefix(name, "~$") {
		return true
	}
	if strings.HasPrefix(name, "#") && strings.HasSuffix(name, "#") {
		return true
	}
	lower := strings.ToLower(name)
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
