package observer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// StopWatcher cancels a run when a stop file appears. It watches the file's
// directory because the file itself does not exist until it is created.
type StopWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	logger  zerolog.Logger
}

// NewStopWatcher creates a watcher for path, creating its directory if needed
func NewStopWatcher(path string, logger zerolog.Logger) (*StopWatcher, error) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create stop file directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &StopWatcher{watcher: watcher, path: path, logger: logger}, nil
}

// Path returns the watched stop file
func (w *StopWatcher) Path() string {
	return w.path
}

// ClearStale removes a stop file left over from an earlier run and reports
// whether there was one
func (w *StopWatcher) ClearStale() (bool, error) {
	err := os.Remove(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Run blocks until ctx is done or the stop file is created, in which case
// it calls cancel with a cause naming the file. It closes the watcher on
// return.
func (w *StopWatcher) Run(ctx context.Context, cancel context.CancelCauseFunc) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.logger.Info().Str("file", w.path).Msg("stop file detected, stopping the run")
			cancel(fmt.Errorf("stop file %s created", w.path))
			return nil
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("stop file watcher error")
		}
	}
}
