package daemon

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/hevsound/internal/arbiter"
	"github.com/jmylchreest/hevsound/internal/audio"
	"github.com/jmylchreest/hevsound/internal/config"
	"github.com/jmylchreest/hevsound/internal/dbus"
	"github.com/jmylchreest/hevsound/internal/model"
	"github.com/jmylchreest/hevsound/internal/notify"
	"github.com/jmylchreest/hevsound/internal/store"
)

// trimEvery is how many journal appends happen between trims.
const trimEvery = 100

// Dispatcher gates events before they reach the arbiter. An event passes
// when the master switch is on and the event's own flag is set.
type Dispatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	cfg       *config.Config
	state     *store.SharedState
	statePath string

	arbiter  *arbiter.Arbiter
	manager  *audio.Manager
	journal  *store.Journal
	notifier *notify.Notifier

	onPlayed []func(model.PlayRecord)
	last     model.PlayRecord
	appended int
}

// NewDispatcher creates a Dispatcher and registers it for the manager's
// played sounds.
func NewDispatcher(cfg *config.Config, state *store.SharedState, statePath string,
	arb *arbiter.Arbiter, mgr *audio.Manager, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if state == nil {
		state = store.DefaultSharedState()
	}

	d := &Dispatcher{
		logger:    logger,
		cfg:       cfg,
		state:     state,
		statePath: statePath,
		arbiter:   arb,
		manager:   mgr,
	}
	mgr.SetPlayedCallback(d.recordPlayed)
	return d
}

// SetJournal sets the journal that played sounds are appended to.
func (d *Dispatcher) SetJournal(j *store.Journal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.journal = j
}

// SetNotifier sets the notifier used for master switch changes.
func (d *Dispatcher) SetNotifier(n *notify.Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifier = n
}

// OnPlayed registers fn to be called for every sound that plays.
func (d *Dispatcher) OnPlayed(fn func(model.PlayRecord)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onPlayed = append(d.onPlayed, fn)
}

// Dispatch offers an event to the arbiter if it passes the gate. It reports
// whether the event was submitted; a submitted event may still lose
// arbitration.
func (d *Dispatcher) Dispatch(kind model.EventKind, source string) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("%w: %q", model.ErrUnknownEvent, kind)
	}

	d.mu.RLock()
	cfg := d.cfg
	soundsOn := d.state.SoundsOn(cfg.Sounds.Enabled)
	d.mu.RUnlock()

	if !soundsOn {
		d.logger.Debug("event dropped: sounds disabled", "event", kind, "source", source)
		return false, nil
	}
	if !cfg.IsEventEnabled(kind) {
		d.logger.Debug("event dropped: event disabled", "event", kind, "source", source)
		return false, nil
	}

	req, err := d.manager.Request(kind, source)
	if err != nil {
		return false, err
	}

	d.logger.Debug("event submitted", "event", kind, "source", source, "priority", req.Priority, "id", req.ID)
	d.arbiter.Submit(req)
	return true, nil
}

// SetSoundsEnabled writes the master switch to the shared state.
func (d *Dispatcher) SetSoundsEnabled(enabled bool, source string) error {
	reason := "sounds off"
	if enabled {
		reason = "sounds on"
	}

	state, err := store.UpdateSharedState(d.statePath, func(s *store.SharedState) {
		s.SetSounds(enabled, reason, source)
	})
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	d.mu.Lock()
	d.state = state
	notifier := d.notifier
	d.mu.Unlock()

	d.logger.Info("sounds switched", "enabled", enabled, "source", source)
	if notifier != nil {
		notifier.NotifySounds(enabled)
	}
	return nil
}

// SoundsEnabled returns the effective master switch.
func (d *Dispatcher) SoundsEnabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state.SoundsOn(d.cfg.Sounds.Enabled)
}

// Status implements dbus.Handler.
func (d *Dispatcher) Status() dbus.Status {
	snap := d.arbiter.Snapshot()

	d.mu.RLock()
	defer d.mu.RUnlock()
	return dbus.Status{
		Enabled:      d.state.SoundsOn(d.cfg.Sounds.Enabled),
		LastEvent:    d.last.Event,
		LastPlayedAt: d.last.PlayedAt,
		Pending:      snap.Pending,
		LastPriority: snap.LastPriority,
	}
}

// UpdateConfig swaps in a reloaded configuration.
func (d *Dispatcher) UpdateConfig(cfg *config.Config) {
	d.mu.Lock()
	before := d.state.SoundsOn(d.cfg.Sounds.Enabled)
	d.cfg = cfg
	after := d.state.SoundsOn(cfg.Sounds.Enabled)
	notifier := d.notifier
	d.mu.Unlock()

	d.manager.UpdateConfig(cfg)
	if notifier != nil {
		notifier.SetEnabled(cfg.Notify.Enabled)
		notifier.SetMinInterval(cfg.Notify.Interval.Duration())
		if before != after {
			notifier.NotifySounds(after)
		}
	}
}

// ReloadState re-reads the shared state file, picking up changes made by
// the CLI.
func (d *Dispatcher) ReloadState() {
	state, err := store.LoadSharedState(d.statePath)
	if err != nil {
		d.logger.Warn("failed to reload state", "error", err)
		return
	}

	d.mu.Lock()
	before := d.state.SoundsOn(d.cfg.Sounds.Enabled)
	d.state = state
	after := state.SoundsOn(d.cfg.Sounds.Enabled)
	notifier := d.notifier
	d.mu.Unlock()

	if before != after {
		d.logger.Info("sounds switched", "enabled", after, "source", "state")
		if notifier != nil {
			notifier.NotifySounds(after)
		}
	}
}

// recordPlayed journals a played sound and runs the played hooks.
func (d *Dispatcher) recordPlayed(rec model.PlayRecord) {
	d.mu.Lock()
	d.last = rec
	journal := d.journal
	keep := d.cfg.Journal.Keep
	hooks := d.onPlayed
	d.appended++
	trim := d.appended%trimEvery == 0
	d.mu.Unlock()

	if journal != nil {
		if err := journal.Append(rec); err != nil {
			d.logger.Warn("failed to append to journal", "error", err)
		} else if trim {
			if err := journal.Trim(keep); err != nil {
				d.logger.Warn("failed to trim journal", "error", err)
			}
		}
	}

	for _, fn := range hooks {
		fn(rec)
	}
}
