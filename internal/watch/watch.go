// Package watch re-runs a callback when source files under a directory change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

var unwatchedDirs = map[string]struct{}{
	".git":        {},
	".hg":         {},
	".svn":        {},
	"__pycache__": {},
}

// DefaultDebounce batches bursts of editor saves into one run.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches a directory tree for changes to files with given extensions.
type Watcher struct {
	root     string
	exts     map[string]struct{}
	debounce time.Duration
	log      *zap.Logger
	fsw      *fsnotify.Watcher
}

// New creates a Watcher on root and every directory beneath it.
func New(root string, extensions []string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		exts:     make(map[string]struct{}, len(extensions)),
		debounce: debounce,
		log:      log,
		fsw:      fsw,
	}
	for _, e := range extensions {
		w.exts[e] = struct{}{}
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers dir and its subdirectories. Only VCS metadata and
// bytecode caches are left out, so every directory the walker can return
// files from is watched.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := unwatchedDirs[d.Name()]; skip && path != dir {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		w.log.Debug("watching directory", zap.String("path", path))
		return nil
	})
}

// Run calls onChange after each debounced batch of relevant events until ctx
// is done. It closes the watcher before returning.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context)) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug("change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-timer.C:
			onChange(ctx)
		}
	}
}

// relevant reports whether event should trigger a run, registering newly
// created directories as a side effect.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return true
		}
	}
	if event.Op == fsnotify.Chmod {
		return false
	}
	_, ok := w.exts[filepath.Ext(event.Name)]
	return ok
}
