package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps the current policy in sync with its file. A file that fails
// to parse leaves the previous policy in place.
type Watcher struct {
	path     string
	current  atomic.Pointer[Policy]
	logger   *slog.Logger
	debounce time.Duration
	onChange func(Policy)
}

type WatcherOption func(w *Watcher)

func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithOnChange registers a callback invoked after every successful reload.
func WithOnChange(fn func(Policy)) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher loads the file once. It fails if the initial load fails.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{path: path, debounce: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	p, err := Load(path)
	if err != nil {
		return nil, err
	}
	w.current.Store(&p)
	return w, nil
}

// Current returns the active policy.
func (w *Watcher) Current() Policy {
	return *w.current.Load()
}

// Run watches the policy file until ctx is cancelled. The parent directory is
// watched so that editors replacing the file atomically are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	if w.path == "" {
		<-ctx.Done()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create policy watcher: %w", err)
	}
	defer fw.Close()

	target := filepath.Clean(w.path)
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("policy watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	p, err := Load(w.path)
	if err != nil {
		w.logger.Warn("policy reload failed, keeping previous policy", "path", w.path, "error", err)
		return
	}
	w.current.Store(&p)
	w.logger.Info("policy reloaded", "path", w.path, "enabled", p.Enabled, "allowed", p.Allowed.Ints())
	if w.onChange != nil {
		w.onChange(p)
	}
}
