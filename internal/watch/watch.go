// Package watch re-runs a batch whenever one of its input files changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events an editor emits on save.
const DefaultDebounce = 200 * time.Millisecond

// RunFunc is invoked after a watched input changes.
type RunFunc func(ctx context.Context) error

// Watcher watches a fixed set of files through their parent directories, so
// that editors replacing a file by rename are still seen.
type Watcher struct {
	watcher  *fsnotify.Watcher
	inputs   map[string]bool
	run      RunFunc
	logger   *zap.Logger
	debounce time.Duration
}

// New starts watching the directories of paths.
//
// Precondition: paths must be non-empty; run and logger must be non-nil.
// Postcondition: returns a Watcher that must be closed, or a non-nil error.
func New(paths []string, run RunFunc, logger *zap.Logger, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	inputs := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		inputs[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	return &Watcher{
		watcher:  fw,
		inputs:   inputs,
		run:      run,
		logger:   logger,
		debounce: debounce,
	}, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run blocks until ctx is cancelled or the underlying watcher is closed,
// invoking the RunFunc once per debounced burst of changes. Failures of the
// RunFunc are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.inputs[filepath.Clean(event.Name)] {
				continue
			}
			w.logger.Debug("input changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			if err := w.run(ctx); err != nil {
				w.logger.Error("re-run failed", zap.Error(err))
				continue
			}
			w.logger.Info("re-run complete")
		}
	}
}
