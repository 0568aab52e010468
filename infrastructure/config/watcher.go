package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 100 * time.Millisecond

// ConfigWatcher reloads the limits block of a config file when it changes
// and notifies subscribers.
type ConfigWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	current  Limits
	onChange []func(Limits)
}

// NewConfigWatcher creates a watcher for path seeded with the given limits.
// The directory is watched too so that editors saving by rename are seen.
func NewConfigWatcher(path string, initial Limits, logger *zap.Logger) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &ConfigWatcher{
		path:     path,
		watcher:  watcher,
		debounce: defaultDebounce,
		logger:   logger,
		current:  initial,
	}, nil
}

// OnChange registers a callback invoked with the new limits after each
// successful reload
func (w *ConfigWatcher) OnChange(fn func(Limits)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Current returns the limits last loaded
func (w *ConfigWatcher) Current() Limits {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Run watches for changes until ctx is cancelled
func (w *ConfigWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	w.logger.Info("Configuration watcher started", zap.String("path", w.path))

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Configuration watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

// reload re-reads the file, keeping the current limits on any error
func (w *ConfigWatcher) reload() {
	w.mu.RLock()
	base := w.current
	w.mu.RUnlock()

	limits, err := LoadLimitsFile(w.path, base)
	if err != nil {
		w.logger.Error("Failed to reload configuration, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = limits
	handlers := append([]func(Limits){}, w.onChange...)
	w.mu.Unlock()

	if old == limits {
		return
	}
	w.logger.Info("Configuration reloaded",
		zap.Any("old_limits", old),
		zap.Any("new_limits", limits),
	)
	for _, handler := range handlers {
		handler(limits)
	}
}
