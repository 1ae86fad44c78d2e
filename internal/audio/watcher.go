package audio

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the sound directory and invalidates cached sounds
// when their files change.
type Watcher struct {
	mu     sync.Mutex
	logger *slog.Logger
	target Invalidator

	watcher *fsnotify.Watcher
	dir     string

	stopCh chan struct{}
	doneCh chan struct{}

	running bool
}

// NewWatcher creates a new sound directory watcher.
func NewWatcher(target Invalidator, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		logger: logger,
		target: target,
	}
}

// Start begins watching dir. A missing directory is logged and not watched.
func (w *Watcher) Start(ctx context.Context, dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fsw
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	w.addDirLocked(dir)

	go w.watchLoop(ctx, fsw, w.stopCh, w.doneCh)

	w.logger.Debug("audio watcher started", "dir", dir)
	return nil
}

// SetDir switches the watch to a new directory.
func (w *Watcher) SetDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	if w.dir != "" {
		_ = w.watcher.Remove(w.dir)
		w.dir = ""
	}
	w.addDirLocked(dir)
	return nil
}

func (w *Watcher) addDirLocked(dir string) {
	if dir == "" {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("sound directory not watched", "dir", dir, "error", err)
		return
	}
	w.dir = dir
}

// Stop stops watching.
func (w *Watcher) Stop() {
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
	w.logger.Debug("audio watcher stopped")
}

// IsRunning returns whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) watchLoop(ctx context.Context, fsw *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				path := filepath.Clean(event.Name)
				w.logger.Debug("sound file changed, invalidating cache", "path", path)
				w.target.Invalidate(path)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("audio watcher error", "error", err)
		}
	}
}
