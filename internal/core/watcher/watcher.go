// # internal/core/watcher/watcher.go
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"scopeindex/internal/core/ports"
	"scopeindex/internal/shared/observability"
	"scopeindex/internal/shared/util"
)

// HandlerFunc adapts a function to ports.ChangeHandler.
type HandlerFunc func(ctx context.Context, paths []string) error

func (f HandlerFunc) HandleChanges(ctx context.Context, paths []string) error {
	return f(ctx, paths)
}

// Watcher feeds batches of saved, created, renamed and removed files to a
// ports.ChangeHandler. Events for one path within the debounce window are
// delivered once.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	filter    *util.PathFilter
	handler   ports.ChangeHandler
	ctx       context.Context
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	callbackMu sync.Mutex

	pendingMu sync.Mutex
	debounce  time.Duration
	pending   map[string]time.Time
	timer     *time.Timer
	started   bool
	closed    bool
}

func NewWatcher(debounce time.Duration, filter *util.PathFilter, handler ports.ChangeHandler) (*Watcher, error) {
	if handler == nil {
		return nil, os.ErrInvalid
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsWatcher: fsw,
		filter:    filter,
		handler:   handler,
		debounce:  debounce,
		pending:   make(map[string]time.Time),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// Watch registers every directory below roots and starts delivering events.
// ctx is passed to the handler; cancelling it closes the watcher.
func (w *Watcher) Watch(ctx context.Context, roots []string) error {
	for _, root := range roots {
		if err := w.watchRecursive(root); err != nil {
			return err
		}
	}
	w.ctx = ctx
	w.pendingMu.Lock()
	w.started = true
	w.pendingMu.Unlock()
	go w.run()
	go func() {
		select {
		case <-ctx.Done():
			_ = w.Close()
		case <-w.done:
		}
	}()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && w.filter.SkipDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	defer close(w.stopped)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.filter.SkipDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if w.filter.SkipFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.closed {
		return
	}

	w.pending[path] = time.Now()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	if w.closed {
		w.pendingMu.Unlock()
		return
	}
	paths := util.SortedStringKeys(w.pending)
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) == 0 {
		return
	}
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	if err := w.handler.HandleChanges(w.ctx, paths); err != nil {
		slog.Warn("change handler failed", "paths", len(paths), "error", err)
	}
}

func (w *Watcher) enqueueExistingFiles(root string) {
	var found []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.IsDir() {
			if path != root && w.filter.SkipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.filter.SkipFile(path) {
			found = append(found, path)
		}
		return nil
	})
	sort.Strings(found)
	for _, path := range found {
		w.scheduleChange(path)
	}
}

// Close stops event delivery and waits for the event loop to exit. Pending
// changes are discarded.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.pendingMu.Lock()
		w.closed = true
		started := w.started
		if w.timer != nil {
			w.timer.Stop()
		}
		w.pendingMu.Unlock()

		err = w.fsWatcher.Close()
		close(w.done)
		if started {
			<-w.stopped
		}
	})
	return err
}
