package daemon

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jmylchreest/hevsound/internal/config"
)

// fileWatcher polls a file's modification time and calls onChange when it
// moves forward.
type fileWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger
	name   string

	path         string
	lastModTime  time.Time
	pollInterval time.Duration
	onChange     func()

	stopCh chan struct{}
	doneCh chan struct{}

	running bool
}

func newFileWatcher(name, path string, interval time.Duration, logger *slog.Logger) *fileWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &fileWatcher{
		logger:       logger,
		name:         name,
		path:         path,
		pollInterval: interval,
	}
}

// SetPollInterval sets the polling interval for file changes.
func (w *fileWatcher) SetPollInterval(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pollInterval = interval
}

func (w *fileWatcher) start(ctx context.Context, onChange func()) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.onChange = onChange

	if info, err := os.Stat(w.path); err == nil {
		w.lastModTime = info.ModTime()
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	interval := w.pollInterval
	w.mu.Unlock()

	go w.watchLoop(ctx, interval)

	w.logger.Debug(w.name+" watcher started", "path", w.path, "interval", interval)
}

// Stop stops watching and waits for the poll loop to exit.
func (w *fileWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	doneCh := w.doneCh
	w.mu.Unlock()

	<-doneCh
	w.logger.Debug(w.name + " watcher stopped")
}

func (w *fileWatcher) watchLoop(ctx context.Context, interval time.Duration) {
	defer close(w.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.checkForChanges()
		}
	}
}

func (w *fileWatcher) checkForChanges() {
	w.mu.RLock()
	callback := w.onChange
	lastModTime := w.lastModTime
	w.mu.RUnlock()

	info, err := os.Stat(w.path)
	if err != nil {
		// File might not exist yet or was deleted
		if !os.IsNotExist(err) {
			w.logger.Debug("failed to stat "+w.name+" file", "path", w.path, "error", err)
		}
		return
	}

	modTime := info.ModTime()
	if !modTime.After(lastModTime) {
		return
	}

	w.mu.Lock()
	w.lastModTime = modTime
	w.mu.Unlock()

	w.logger.Debug(w.name+" file changed", "path", w.path, "modTime", modTime)
	if callback != nil {
		callback()
	}
}

// StateWatcher watches the shared state file for changes made by the CLI.
type StateWatcher struct {
	*fileWatcher
}

// NewStateWatcher creates a new StateWatcher for the given state file path.
func NewStateWatcher(statePath string, logger *slog.Logger) *StateWatcher {
	return &StateWatcher{newFileWatcher("state", statePath, 500*time.Millisecond, logger)}
}

// Start begins watching; onChange runs on every modification.
func (w *StateWatcher) Start(ctx context.Context, onChange func()) {
	w.start(ctx, onChange)
}

// ConfigWatcher watches the config file and validates new configs before
// handing them on.
type ConfigWatcher struct {
	*fileWatcher

	cfgMu         sync.RWMutex
	currentConfig *config.Config

	onReload func(*config.Config)
	onError  func(error)
}

// NewConfigWatcher creates a new ConfigWatcher for the config file at path.
func NewConfigWatcher(path string, logger *slog.Logger) *ConfigWatcher {
	return &ConfigWatcher{fileWatcher: newFileWatcher("config", path, time.Second, logger)}
}

// SetReloadCallback sets the callback to invoke when config is successfully reloaded.
func (w *ConfigWatcher) SetReloadCallback(callback func(*config.Config)) {
	w.cfgMu.Lock()
	defer w.cfgMu.Unlock()
	w.onReload = callback
}

// SetErrorCallback sets the callback to invoke when config reload fails validation.
func (w *ConfigWatcher) SetErrorCallback(callback func(error)) {
	w.cfgMu.Lock()
	defer w.cfgMu.Unlock()
	w.onError = callback
}

// Start begins watching the config file for changes.
func (w *ConfigWatcher) Start(ctx context.Context, initial *config.Config) {
	w.cfgMu.Lock()
	w.currentConfig = initial
	w.cfgMu.Unlock()

	w.start(ctx, w.reload)
}

// GetCurrentConfig returns the current valid configuration.
func (w *ConfigWatcher) GetCurrentConfig() *config.Config {
	w.cfgMu.RLock()
	defer w.cfgMu.RUnlock()
	return w.currentConfig
}

func (w *ConfigWatcher) reload() {
	w.cfgMu.RLock()
	onReload, onError := w.onReload, w.onError
	w.cfgMu.RUnlock()

	cfg, err := config.LoadConfig(w.path)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}

	w.cfgMu.Lock()
	w.currentConfig = cfg
	w.cfgMu.Unlock()

	w.logger.Info("config reloaded successfully")
	if onReload != nil {
		onReload(cfg)
	}
}
