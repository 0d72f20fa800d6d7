// Package watch reports settled changes to source files under a directory
// tree so a merge can be re-run.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long events must settle before a change fires.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory tree for changes to files with the given
// extensions. Bursts of events within the debounce window fire once.
type Watcher struct {
	root       string
	extensions []string
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	logger     *zap.Logger

	mu        sync.Mutex
	pending   bool
	lastEvent time.Time
	lastPath  string
}

// New creates a watcher for root. Extensions are matched case-insensitively;
// an empty list matches every file.
func New(root string, extensions []string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:       root,
		extensions: extensions,
		debounce:   debounce,
		watcher:    fw,
		logger:     logger,
	}
	if err := w.addTree(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return err
		}
		w.logger.Debug("watching directory", zap.String("dir", p))
		return nil
	})
}

// Run blocks until ctx is cancelled, calling onChange with the last changed
// path once events have settled. The watcher is closed on return.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	defer func() { _ = w.watcher.Close() }()

	tick := w.debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-ticker.C:
			if path, ok := w.settled(time.Now()); ok {
				onChange(path)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return // Ignore chmod
	}
	if !w.wanted(event.Name) {
		return
	}

	w.logger.Debug("source changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
	w.record(event.Name, time.Now())
}

func (w *Watcher) record(path string, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = true
	w.lastEvent = at
	w.lastPath = path
}

// settled reports the last changed path once no event arrived for the
// debounce window, and clears the pending state.
func (w *Watcher) settled(now time.Time) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.pending || now.Sub(w.lastEvent) < w.debounce {
		return "", false
	}
	w.pending = false
	return w.lastPath, true
}

func (w *Watcher) wanted(name string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	lo := strings.ToLower(name)
	for _, ext := range w.extensions {
		if strings.HasSuffix(lo, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
