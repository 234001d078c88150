// Package watch reloads the rwconn config file when it changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of writes from editors.
const DefaultDebounce = 500 * time.Millisecond

// Callback is invoked after the watched file settles.
type Callback func(ctx context.Context) error

// Watcher watches a file for changes
type Watcher struct {
	file     string
	callback Callback
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger used for watch and callback errors.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets the quiet period before the callback runs.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher for file. The parent directory is watched so that
// editors which replace the file on save are still observed.
func New(file string, callback Callback, opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(absPath)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	w := &Watcher{
		file:     absPath,
		callback: callback,
		watcher:  fw,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// File returns the absolute path being watched.
func (w *Watcher) File() string {
	return w.file
}

// Run blocks until ctx is done, invoking the callback after each change.
// Callback errors are logged and do not stop the watcher. The fsnotify
// watcher is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var debounceCh <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			timer.Reset(w.debounce)
			debounceCh = timer.C

		case <-debounceCh:
			debounceCh = nil
			if err := w.callback(ctx); err != nil {
				w.logger.Error("watch callback failed", "file", w.file, "error", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "file", w.file, "error", err)

		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	path, err := filepath.Abs(event.Name)
	return err == nil && path == w.file
}
