// File: internal/watch/watch.go

// Package watch drives continuous audits: a recursive filesystem watcher
// that re-runs the engine after changes settle, and a change-feed follower
// that tails a JSONL stream of modified paths.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/internal/filter"
)

// Runner re-executes the audit after a change. The watcher serializes calls;
// a run never overlaps the next.
type Runner func(ctx context.Context) error

// Watcher re-audits a tree whenever its files change, debounced so a burst
// of writes produces a single run.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *zap.Logger
}

// New returns a watcher for the given root. A non-positive debounce falls
// back to 500ms.
func New(root string, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{root: root, debounce: debounce, logger: logger.Named("watch")}
}

// Watch blocks until the context is cancelled, invoking run after each
// settled burst of filesystem events. Skip directories are never watched;
// directories created while watching are added on the fly.
func (w *Watcher) Watch(ctx context.Context, run Runner) error {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer notifier.Close()

	if err := w.addRecursive(notifier, w.root); err != nil {
		return err
	}
	w.logger.Info("watching for changes",
		zap.String("root", w.root), zap.Duration("debounce", w.debounce))

	f := filter.New(w.root, w.logger)
	debounce := NewDebouncer(w.debounce)
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(w.root, event.Name)
			if err != nil || f.ContainsSkipDirectory(rel) {
				continue
			}
			// New directories join the watch set immediately so files
			// created inside them are seen.
			if event.Has(fsnotify.Create) {
				if err := w.addRecursive(notifier, event.Name); err != nil {
					w.logger.Debug("could not watch new path",
						zap.String("path", event.Name), zap.Error(err))
				}
			}
			w.logger.Debug("change detected",
				zap.String("path", rel), zap.String("op", event.Op.String()))
			debounce.Touch()

		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-debounce.C():
			if err := run(ctx); err != nil {
				w.logger.Error("re-audit failed", zap.Error(err))
			}
		}
	}
}

// addRecursive registers path and every non-skipped directory beneath it.
// Non-directories are ignored.
func (w *Watcher) addRecursive(notifier *fsnotify.Watcher, path string) error {
	f := filter.New(w.root, w.logger)
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err == nil && rel != "." && f.ContainsSkipDirectory(rel+"/") {
			return filepath.SkipDir
		}
		if err := notifier.Add(p); err != nil {
			w.logger.Debug("could not watch directory",
				zap.String("dir", p), zap.Error(err))
		}
		return nil
	})
}
