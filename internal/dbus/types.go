package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/hevsound/internal/model"
)

const (
	// Interface is the hevsound interface name.
	Interface = "io.github.jmylchreest.Hevsound"
	// Path is the hevsound object path.
	Path = "/io/github/jmylchreest/Hevsound"
	// BusName is the bus name the daemon claims.
	BusName = "io.github.jmylchreest.Hevsound"

	// SoundPlayedSignal is the member name of the played signal.
	SoundPlayedSignal = "SoundPlayed"
)

// SourceDBus is the event source recorded for requests arriving over the bus.
const SourceDBus = "dbus"

// Status is the daemon state returned by GetStatus.
type Status struct {
	Enabled      bool            `json:"enabled" yaml:"enabled"`
	LastEvent    model.EventKind `json:"last_event,omitempty" yaml:"last_event,omitempty"`
	LastPlayedAt int64           `json:"last_played_at,omitempty" yaml:"last_played_at,omitempty"` // Unix milliseconds

	// Arbiter state: whether a sound is waiting out the debounce, and the
	// priority of the last scheduled request (-1 before the first).
	Pending      bool `json:"pending" yaml:"pending"`
	LastPriority int  `json:"last_priority" yaml:"last_priority"`
}

// Handler carries out requests received over the bus.
type Handler interface {
	// Dispatch offers an event to the sound gate and reports whether it
	// was accepted for arbitration.
	Dispatch(kind model.EventKind, source string) (bool, error)
	// SetSoundsEnabled sets the master switch.
	SetSoundsEnabled(enabled bool, source string) error
	Status() Status
}

// failed converts err into a D-Bus error reply.
func failed(err error) *dbus.Error {
	return dbus.MakeFailedError(fmt.Errorf("hevsound: %w", err))
}
