// Package model defines the core data structures for hevsound.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// EventKind identifies an editor lifecycle event that can produce a sound.
type EventKind string

const (
	EventStartup       EventKind = "startup"
	EventFileSave      EventKind = "file_save"
	EventFileCreated   EventKind = "file_created"
	EventFileDeleted   EventKind = "file_deleted"
	EventTerminal      EventKind = "terminal"
	EventTerminalError EventKind = "terminal_error"
	EventTabSwitch     EventKind = "tab_switch"
	EventFileOpen      EventKind = "file_open"
	EventFileClosed    EventKind = "file_closed"
)

// Priority levels. Larger values win arbitration; there is no upper bound.
const (
	PriorityLow    = 0
	PriorityNormal = 1
	PriorityHigh   = 2
)

// ErrUnknownEvent is returned when an event name does not match any kind.
var ErrUnknownEvent = errors.New("unknown event")

// Sound is the sound played for an event.
type Sound struct {
	File     string  `toml:"file" json:"file" yaml:"file"`
	Volume   float64 `toml:"volume" json:"volume" yaml:"volume"` // 0.0-1.0
	Priority int     `toml:"priority" json:"priority" yaml:"priority"`
}

// defaultSounds is the stock HEV suit sound set.
var defaultSounds = map[EventKind]Sound{
	EventStartup:       {File: "hev_logon.mp3", Volume: 0.8, Priority: PriorityHigh},
	EventFileSave:      {File: "medic_shot.mp3", Volume: 0.1, Priority: PriorityNormal},
	EventFileCreated:   {File: "battery_pickup.mp3", Volume: 0.125, Priority: PriorityHigh},
	EventFileDeleted:   {File: "energy_disintegrate4.mp3", Volume: 0.1, Priority: PriorityHigh},
	EventTerminal:      {File: "combine_radio.mp3", Volume: 0.7, Priority: PriorityNormal},
	EventTerminalError: {File: "major_fracture_detected.mp3", Volume: 0.75, Priority: PriorityHigh},
	EventTabSwitch:     {File: "button_roll_over.mp3", Volume: 0.8, Priority: PriorityLow},
	EventFileOpen:      {File: "physcannon_pickup.mp3", Volume: 0.05, Priority: PriorityNormal},
	EventFileClosed:    {File: "physcannon_drop.mp3", Volume: 0.05, Priority: PriorityNormal},
}

// legacyNames maps the editor setting style names to event kinds.
var legacyNames = map[string]EventKind{
	"savefile":      EventFileSave,
	"filecreated":   EventFileCreated,
	"filedeleted":   EventFileDeleted,
	"terminalerror": EventTerminalError,
	"tabswitch":     EventTabSwitch,
	"fileopen":      EventFileOpen,
	"fileclosed":    EventFileClosed,
}

// AllEvents returns every event kind in display order.
func AllEvents() []EventKind {
	return []EventKind{
		EventStartup,
		EventFileSave,
		EventFileCreated,
		EventFileDeleted,
		EventFileOpen,
		EventFileClosed,
		EventTabSwitch,
		EventTerminal,
		EventTerminalError,
	}
}

// DefaultSound returns the stock sound for an event kind.
func DefaultSound(kind EventKind) (Sound, bool) {
	s, ok := defaultSounds[kind]
	return s, ok
}

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	_, ok := defaultSounds[k]
	return ok
}

// Label returns a human-readable name, e.g. "File save".
func (k EventKind) Label() string {
	s := strings.ReplaceAll(string(k), "_", " ")
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseEventKind parses an event name. Besides the snake_case kinds it
// accepts the camelCase names used by editor settings ("saveFile",
// "tabSwitch"), case-insensitively.
func ParseEventKind(s string) (EventKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if k := EventKind(name); k.Valid() {
		return k, nil
	}
	if k, ok := legacyNames[strings.ReplaceAll(name, "_", "")]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
}
