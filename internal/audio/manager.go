package audio

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/hevsound/internal/arbiter"
	"github.com/jmylchreest/hevsound/internal/config"
	"github.com/jmylchreest/hevsound/internal/model"
)

// Manager turns events into arbiter requests that play through a backend.
type Manager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	backend Backend
	watcher *Watcher
	config  *config.Config

	onPlayed func(model.PlayRecord)

	// In-flight playback goroutines. Add happens under mu and only while
	// stopped is false, so Wait in Stop sees every sound that started.
	wg      sync.WaitGroup
	stopped bool
}

// NewManager creates a new audio manager.
func NewManager(cfg *config.Config, backend Backend, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	m := &Manager{
		logger:  logger,
		backend: backend,
		config:  cfg,
	}
	if inv, ok := backend.(Invalidator); ok {
		m.watcher = NewWatcher(inv, logger)
	}
	return m
}

// SetPlayedCallback sets a function called, off the caller's goroutine,
// for every sound that plays.
func (m *Manager) SetPlayedCallback(fn func(model.PlayRecord)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPlayed = fn
}

// Backend returns the playback backend.
func (m *Manager) Backend() Backend {
	return m.backend
}

// Start starts watching the sound directory when the backend caches sounds.
func (m *Manager) Start(ctx context.Context) error {
	if m.watcher == nil {
		return nil
	}

	m.mu.RLock()
	dir := config.ExpandPath(m.config.Audio.SoundDir)
	m.mu.RUnlock()

	if err := m.watcher.Start(ctx, dir); err != nil {
		return fmt.Errorf("failed to watch sound directory: %w", err)
	}
	m.logger.Info("audio manager started", "backend", m.backend.Name(), "sound_dir", dir,
		"preloaded", m.Preload())
	return nil
}

// Preload decodes the sound of every enabled event when the backend
// supports it, and returns how many were loaded. Missing or undecodable
// files are skipped; they fail again, and are logged, when played.
func (m *Manager) Preload() int {
	p, ok := m.backend.(Preloader)
	if !ok {
		return 0
	}

	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	loaded := 0
	for _, kind := range model.AllEvents() {
		if !cfg.IsEventEnabled(kind) {
			continue
		}
		sound, ok := cfg.EventSound(kind)
		if !ok {
			continue
		}
		if err := p.Preload(sound.File); err != nil {
			m.logger.Debug("failed to preload sound", "event", kind, "error", err)
			continue
		}
		loaded++
	}
	return loaded
}

// Stop stops the watcher and waits for sounds that are still playing.
// Requests that fire after Stop do not play.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()

	if m.watcher != nil {
		m.watcher.Stop()
	}
	m.Wait()
	m.logger.Debug("audio manager stopped")
}

// Wait blocks until all started sounds have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// UpdateConfig swaps the configuration used for new requests.
// This is called when the config file is hot-reloaded.
func (m *Manager) UpdateConfig(cfg *config.Config) {
	m.mu.Lock()
	oldDir := m.config.Audio.SoundDir
	m.config = cfg
	m.mu.Unlock()

	if m.watcher != nil && oldDir != cfg.Audio.SoundDir && m.watcher.IsRunning() {
		if err := m.watcher.SetDir(config.ExpandPath(cfg.Audio.SoundDir)); err != nil {
			m.logger.Warn("failed to watch new sound directory", "dir", cfg.Audio.SoundDir, "error", err)
		}
	}
	m.logger.Debug("audio manager config updated")
}

// Resolve returns the sound for kind with the master volume applied.
func (m *Manager) Resolve(kind model.EventKind) (model.Sound, error) {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	sound, ok := cfg.EventSound(kind)
	if !ok {
		return model.Sound{}, fmt.Errorf("%w: %q", model.ErrUnknownEvent, kind)
	}
	sound.Volume = clampVolume(sound.Volume * float64(cfg.Sounds.Volume) / 100)
	return sound, nil
}

// Request builds the arbiter request for kind. Its Play starts playback
// on a new goroutine; playback errors are logged and dropped.
func (m *Manager) Request(kind model.EventKind, source string) (arbiter.Request, error) {
	sound, err := m.Resolve(kind)
	if err != nil {
		return arbiter.Request{}, err
	}

	id, err := model.NewID()
	if err != nil {
		return arbiter.Request{}, err
	}

	return arbiter.Request{
		ID:       id,
		Priority: sound.Priority,
		Play: func() {
			rec := model.PlayRecord{
				ID:       id,
				Event:    kind,
				Source:   source,
				File:     sound.File,
				Volume:   sound.Volume,
				Priority: sound.Priority,
				Backend:  m.backend.Name(),
				PlayedAt: time.Now().UnixMilli(),
			}

			m.mu.Lock()
			if m.stopped {
				m.mu.Unlock()
				m.logger.Debug("sound dropped after stop", "event", kind)
				return
			}
			m.wg.Add(1)
			m.mu.Unlock()

			go m.play(rec)
		},
	}, nil
}

func (m *Manager) play(rec model.PlayRecord) {
	defer m.wg.Done()

	m.mu.RLock()
	onPlayed := m.onPlayed
	m.mu.RUnlock()
	if onPlayed != nil {
		onPlayed(rec)
	}

	m.logger.Debug("playing sound", "event", rec.Event, "file", filepath.Base(rec.File), "volume", rec.Volume)
	if err := m.backend.Play(rec.File, rec.Volume); err != nil {
		m.logger.Debug("sound playback failed", "event", rec.Event, "backend", rec.Backend, "error", err)
	}
}
