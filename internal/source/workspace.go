package source

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/hevsound/internal/model"
)

// settleDelay is how long a burst of file system events is collected
// before it is turned into editor events.
const settleDelay = 100 * time.Millisecond

// Workspace watches directory trees and turns file system changes into
// events. Changes are collected for a short settle window and resolved per
// path by whether it existed before the burst and exists after it:
// new paths are file_created, vanished paths are file_deleted and paths
// that survive are file_save. A save that writes a temp file and renames
// it over the target is therefore one file_save, and the temp file, which
// neither existed before nor after, produces nothing.
type Workspace struct {
	mu         sync.Mutex
	logger     *slog.Logger
	dispatcher Dispatcher
	roots      []string
	ignore     []string
	settle     time.Duration

	watcher *fsnotify.Watcher
	watched map[string]bool // directories added to the watcher
	known   map[string]bool // files and directories known to exist

	// burst maps each path changed since the last flush to whether it was
	// known when its first change arrived.
	burst map[string]bool
}

// NewWorkspace creates a Workspace over roots. ignore holds base name glob
// patterns (filepath.Match syntax) for files and directories to skip.
func NewWorkspace(roots, ignore []string, d Dispatcher, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		logger:     logger,
		dispatcher: d,
		roots:      roots,
		ignore:     ignore,
		settle:     settleDelay,
		watched:    make(map[string]bool),
		known:      make(map[string]bool),
		burst:      make(map[string]bool),
	}
}

// Name returns the source identifier.
func (w *Workspace) Name() string {
	return "workspace"
}

// Run watches until ctx is done.
func (w *Workspace) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return &SourceError{Source: w.Name(), Message: "failed to create watcher", Err: err}
	}
	defer fsw.Close()

	w.mu.Lock()
	w.watcher = fsw
	w.mu.Unlock()

	added := 0
	for _, root := range w.roots {
		n, err := w.addTree(root)
		if err != nil {
			w.logger.Warn("failed to watch workspace", "path", root, "error", err)
			continue
		}
		added += n
	}
	if added == 0 {
		return &SourceError{Source: w.Name(), Message: "no directories to watch"}
	}
	w.logger.Info("watching workspace", "roots", w.roots, "directories", added)

	var flush <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.collect(event) && flush == nil {
				flush = time.After(w.settle)
			}
		case <-flush:
			flush = nil
			w.flush()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("workspace watcher error", "error", err)
		}
	}
}

// collect adds one fsnotify event to the current burst and reports
// whether it was kept.
func (w *Workspace) collect(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	path := filepath.Clean(event.Name)
	if w.ignored(filepath.Base(path)) {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, seen := w.burst[path]; !seen {
		w.burst[path] = w.known[path]
	}
	return true
}

// flush resolves the burst into events and dispatches them in path order.
func (w *Workspace) flush() {
	w.mu.Lock()
	burst := w.burst
	w.burst = make(map[string]bool)
	w.mu.Unlock()

	paths := make([]string, 0, len(burst))
	for path := range burst {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		existed := burst[path]
		info, err := os.Stat(path)
		exists := err == nil

		var kind model.EventKind
		switch {
		case existed && exists:
			if info.IsDir() {
				continue
			}
			kind = model.EventFileSave
		case exists:
			kind = model.EventFileCreated
			if info.IsDir() {
				if _, err := w.addTree(path); err != nil {
					w.logger.Debug("failed to watch new directory", "path", path, "error", err)
				}
			}
		case existed:
			kind = model.EventFileDeleted
			w.forget(path)
		default:
			w.logger.Debug("skipping transient file", "path", path)
			continue
		}

		if exists {
			w.mu.Lock()
			w.known[path] = true
			w.mu.Unlock()
		}

		w.logger.Debug("workspace event", "event", kind, "path", path)
		if _, err := w.dispatcher.Dispatch(kind, w.Name()); err != nil {
			w.logger.Warn("failed to dispatch event", "event", kind, "error", err)
		}
	}
}

// forget drops path and everything below it.
func (w *Workspace) forget(path string) {
	prefix := path + string(filepath.Separator)

	w.mu.Lock()
	defer w.mu.Unlock()
	for p := range w.known {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(w.known, p)
		}
	}
	for p := range w.watched {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(w.watched, p)
		}
	}
}

// addTree watches root and every directory below it that isn't ignored.
// It returns the number of directories added.
func (w *Workspace) addTree(root string) (int, error) {
	info, err := os.Stat(root)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, errors.New("not a directory")
	}

	added := 0
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if path != root && w.ignored(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		w.known[path] = true
		if !d.IsDir() || w.watched[path] {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Debug("failed to watch directory", "path", path, "error", err)
			return nil
		}
		w.watched[path] = true
		added++
		return nil
	})
	return added, err
}

func (w *Workspace) ignored(name string) bool {
	for _, pattern := range w.ignore {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// Watched returns the number of watched directories.
func (w *Workspace) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}
