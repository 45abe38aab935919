// Package watch re-runs a callback when watched files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/abdul-hamid-achik/hostspec/packages/logger"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

const (
	// DefaultDebounce is how long the watcher waits for events to settle.
	DefaultDebounce = 300 * time.Millisecond
	// DefaultMinInterval is the minimum spacing between two callbacks.
	DefaultMinInterval = time.Second
)

// Func is called with the sorted set of paths that changed.
type Func func(ctx context.Context, changed []string)

type Watcher struct {
	watcher  *fsnotify.Watcher
	targets  map[string]bool
	dirs     map[string]bool
	debounce time.Duration
	limiter  *rate.Limiter
	log      *slog.Logger
}

type Option func(*Watcher)

// WithDebounce sets the quiet period that coalesces bursts of events.
// Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithMinInterval spaces consecutive callbacks at least d apart.
func WithMinInterval(d time.Duration) Option {
	return func(w *Watcher) {
		w.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(w *Watcher) {
		w.log = log
	}
}

// New watches every path. Files are watched through their parent directory
// so editors that replace files on save are still seen; directories are
// watched recursively.
func New(paths []string, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		targets:  make(map[string]bool),
		dirs:     make(map[string]bool),
		debounce: DefaultDebounce,
		limiter:  rate.NewLimiter(rate.Every(DefaultMinInterval), 1),
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, p := range paths {
		if err := w.add(p); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	switch {
	case err == nil && info.IsDir():
		return filepath.WalkDir(abs, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				w.targets[p] = true
				return w.watchDir(p)
			}
			return nil
		})
	case err != nil && !os.IsNotExist(err):
		return err
	}

	// Missing files are watched through their parent so creation is seen.
	w.targets[abs] = true
	dir := filepath.Dir(abs)
	if _, err := os.Stat(dir); err != nil {
		w.log.Debug("not watching missing directory", "path", dir)
		return nil
	}
	return w.watchDir(dir)
}

func (w *Watcher) watchDir(dir string) error {
	if w.dirs[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.dirs[dir] = true
	return nil
}

// relevant reports whether an event on name concerns a watched target.
func (w *Watcher) relevant(name string) bool {
	return w.targets[name] || w.targets[filepath.Dir(name)]
}

// Run blocks until ctx is done, calling fn after each settled burst of
// changes.
func (w *Watcher) Run(ctx context.Context, fn Func) error {
	defer w.watcher.Close()

	pending := make(map[string]bool)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.relevant(event.Name) {
				continue
			}
			w.log.Debug("file changed", "path", event.Name, "op", event.Op.String())
			pending[event.Name] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			if err := w.limiter.Wait(ctx); err != nil {
				return nil
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			fn(ctx, changed)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}
