package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 500 * time.Millisecond

// ConfigWatcher reloads the YAML configuration file when it changes and
// hands the new configuration to registered callbacks.
type ConfigWatcher struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
	logger    *zap.Logger

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewConfigWatcher creates a watcher for initial.ConfigFile. Hot reloading
// is enabled only in development and only when a file was loaded; otherwise
// the watcher just holds the initial configuration.
func NewConfigWatcher(initial *Config, logger *zap.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &ConfigWatcher{
		config: initial,
		logger: logger,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	if !initial.IsDevelopment() || initial.ConfigFile == "" {
		logger.Info("Configuration hot reloading disabled",
			zap.String("environment", string(initial.Environment)),
		)
		close(w.done)
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Editors replace files on save, so watch the directory
	if err := fsWatcher.Add(filepath.Dir(initial.ConfigFile)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}
	w.watcher = fsWatcher
	go w.watchLoop()

	logger.Info("Configuration hot reloading enabled",
		zap.String("file", initial.ConfigFile),
	)
	return w, nil
}

// Current returns the latest configuration
func (w *ConfigWatcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// OnChange registers a callback run after every successful reload
func (w *ConfigWatcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Stop ends the watch loop
func (w *ConfigWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.done
}

func (w *ConfigWatcher) watchLoop() {
	defer close(w.done)
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	target := filepath.Clean(w.config.ConfigFile)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("Configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDebounce, w.Reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			w.logger.Info("Stopping configuration watcher")
			return
		}
	}
}

// Reload re-reads the configuration file. Invalid or unchanged files keep
// the current configuration.
func (w *ConfigWatcher) Reload() {
	current := w.Current()
	next, err := LoadFrom(current.ConfigFile)
	if err != nil {
		w.logger.Error("Invalid configuration after reload", zap.Error(err))
		return
	}
	if reflect.DeepEqual(current, next) {
		w.logger.Debug("Configuration unchanged after reload")
		return
	}

	w.mu.Lock()
	w.config = next
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	w.logChanges(current, next)
	for _, fn := range callbacks {
		fn(next)
	}
	w.logger.Info("Configuration reloaded", zap.Int("callbacks_notified", len(callbacks)))
}

func (w *ConfigWatcher) logChanges(old, next *Config) {
	if old.Editor.DebounceWindow != next.Editor.DebounceWindow {
		w.logger.Info("Autosave debounce changed",
			zap.Duration("old", old.Editor.DebounceWindow),
			zap.Duration("new", next.Editor.DebounceWindow),
		)
	}
	if old.LogLevel != next.LogLevel {
		w.logger.Info("Log level changed",
			zap.String("old", old.LogLevel),
			zap.String("new", next.LogLevel),
		)
	}
}
