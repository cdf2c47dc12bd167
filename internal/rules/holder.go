package rules

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Holder publishes the current Engine to concurrent readers. A rebuilt
// engine replaces the old one atomically; scans already running keep the
// engine they started with.
type Holder struct {
	engine atomic.Pointer[Engine]
}

func NewHolder(e *Engine) *Holder {
	h := &Holder{}
	if e != nil {
		h.engine.Store(e)
	}
	return h
}

// Load returns the current engine, or nil before the first Store.
func (h *Holder) Load() *Engine {
	return h.engine.Load()
}

func (h *Holder) Store(e *Engine) {
	h.engine.Store(e)
}

// BuildFunc rebuilds an engine from scratch and returns the files it was
// built from, so the watch set can follow config edits.
type BuildFunc func() (*Engine, []string, error)

// ReloadHook is told about every rebuild attempt.
type ReloadHook func(err error)

const reloadDebounce = 200 * time.Millisecond

// Watch rebuilds the engine whenever one of paths changes, until ctx is done.
// A failed rebuild leaves the current engine in place. Directories are
// watched rather than files so that editors replacing files by rename are
// still seen.
func (h *Holder) Watch(ctx context.Context, paths []string, build BuildFunc, hook ReloadHook) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	files := map[string]bool{}
	dirs := map[string]bool{}
	track := func(paths []string) {
		clear(files)
		for _, p := range paths {
			abs, err := filepath.Abs(p)
			if err != nil {
				continue
			}
			files[abs] = true
			dir := filepath.Dir(abs)
			if dirs[dir] {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				slog.Warn("watch directory", "dir", dir, "err", err)
				continue
			}
			dirs[dir] = true
		}
	}
	track(paths)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !files[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			engine, next, err := build()
			if err != nil {
				slog.Error("rules reload failed, keeping previous engine", "err", err)
			} else {
				h.Store(engine)
				track(next)
				slog.Info("rules reloaded", "rules", len(engine.Rules))
			}
			if hook != nil {
				hook(err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("rules watcher error", "err", err)
		}
	}
}
