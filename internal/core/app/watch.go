package app

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"scopeindex/internal/core/errors"
	"scopeindex/internal/core/watcher"
)

// HandleChanges brings the index up to date with saved, reloaded and removed
// files. Files that no longer exist are forgotten; the others are re-indexed
// and their symbols refreshed in the background. A failure on one file is
// logged and does not stop the others.
func (ix *Indexer) HandleChanges(ctx context.Context, paths []string) error {
	slog.Info("detected changes", "count", len(paths))
	start := time.Now()

	var added, removed []string
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			if ferr := ix.Forget(ctx, path); ferr != nil {
				slog.Warn("failed to forget file", "path", path, "error", ferr)
			}
			removed = append(removed, path)
			continue
		}
		if err != nil || !info.Mode().IsRegular() || ix.filter.SkipFile(path) {
			continue
		}
		added = append(added, path)

		if !ix.indexable.SkipFile(path) {
			if _, err := ix.IndexFile(ctx, path); err != nil {
				slog.Warn("failed to re-index file", "path", path, "error", err)
			}
		}
		if err := ix.UpdateSymbols(ctx, path, true); err != nil {
			slog.Warn("failed to queue symbol update", "path", path, "error", err)
		}
	}

	ix.publishChanges(added, removed)
	slog.Debug("changes applied", "count", len(paths), "duration", time.Since(start))
	return nil
}

func (ix *Indexer) publishChanges(added, removed []string) {
	if len(added) == 0 && len(removed) == 0 {
		return
	}
	ix.filesMu.Lock()
	defer ix.filesMu.Unlock()

	current := ix.project.Filenames()
	known := make(map[string]bool, len(current))
	for _, f := range current {
		known[f] = true
	}
	changed := false
	for _, f := range removed {
		if known[f] {
			delete(known, f)
			changed = true
		}
	}
	var fresh []string
	for _, f := range added {
		if !known[f] {
			known[f] = true
			fresh = append(fresh, f)
		}
	}
	if !changed && len(fresh) == 0 {
		return
	}

	next := make([]string, 0, len(known))
	for _, f := range current {
		if known[f] {
			next = append(next, f)
		}
	}
	sort.Strings(fresh)
	ix.project.UpdateFiles(append(next, fresh...))
}

// Watch re-indexes files under roots as they change until ctx is cancelled
// or the Indexer is closed.
func (ix *Indexer) Watch(ctx context.Context, roots []string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.watcher != nil {
		return errors.New(errors.CodeValidationError, "indexer is already watching")
	}

	w, err := watcher.NewWatcher(ix.cfg.Watch.Debounce, ix.filter, ix)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create watcher")
	}
	if err := w.Watch(ctx, roots); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.CodeInternal, "watch roots")
	}
	ix.watcher = w
	slog.Info("watching for changes", "roots", roots, "debounce", ix.cfg.Watch.Debounce)
	return nil
}
