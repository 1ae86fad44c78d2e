package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SoundsTransition records details about a master switch change.
type SoundsTransition struct {
	Enabled   bool   `json:"enabled"`
	Reason    string `json:"reason"`           // Human-readable reason (e.g., "sounds off")
	Source    string `json:"source,omitempty"` // Source identifier (e.g., "cli", "tui", "dbus")
	Timestamp int64  `json:"timestamp"`
}

// SharedState contains state that is shared between hevsound and hevsoundd.
// This is persisted to ~/.local/share/hevsound/state.json
type SharedState struct {
	// SoundsEnabled overrides [sounds] enabled from the config when set.
	SoundsEnabled        *bool             `json:"sounds_enabled,omitempty"`
	SoundsLastTransition *SoundsTransition `json:"sounds_last_transition,omitempty"`

	// Set once the welcome notification has been shown.
	WalkthroughShown bool `json:"walkthrough_shown,omitempty"`

	SchemaVersion int `json:"schema_version"`
}

const (
	// CurrentSchemaVersion is the current version of the state schema.
	CurrentSchemaVersion = 1
)

// stateFileMutex protects concurrent access to the state file.
var stateFileMutex sync.RWMutex

// DefaultSharedState returns a new SharedState with default values.
func DefaultSharedState() *SharedState {
	return &SharedState{SchemaVersion: CurrentSchemaVersion}
}

// LoadSharedState loads the shared state from path.
// If the file doesn't exist or cannot be parsed, returns a default state.
func LoadSharedState(path string) (*SharedState, error) {
	stateFileMutex.RLock()
	defer stateFileMutex.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSharedState(), nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state SharedState
	if err := json.Unmarshal(data, &state); err != nil {
		return DefaultSharedState(), nil
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	return &state, nil
}

// SaveSharedState writes the shared state to path atomically.
func SaveSharedState(path string, state *SharedState) error {
	stateFileMutex.Lock()
	defer stateFileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// UpdateSharedState loads the state at path, applies fn and saves it.
func UpdateSharedState(path string, fn func(*SharedState)) (*SharedState, error) {
	state, err := LoadSharedState(path)
	if err != nil {
		return nil, err
	}
	fn(state)
	if err := SaveSharedState(path, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetSounds sets the master switch override.
func (s *SharedState) SetSounds(enabled bool, reason, source string) {
	s.SoundsEnabled = &enabled
	s.SoundsLastTransition = &SoundsTransition{
		Enabled:   enabled,
		Reason:    reason,
		Source:    source,
		Timestamp: time.Now().Unix(),
	}
}

// ToggleSounds flips the effective master switch. fallback is the value
// used when no override has been written yet, normally the config value.
// Returns the new state.
func (s *SharedState) ToggleSounds(fallback bool, reason, source string) bool {
	enabled := !s.SoundsOn(fallback)
	s.SetSounds(enabled, reason, source)
	return enabled
}

// SoundsOn returns the effective master switch.
func (s *SharedState) SoundsOn(fallback bool) bool {
	if s == nil || s.SoundsEnabled == nil {
		return fallback
	}
	return *s.SoundsEnabled
}

// ClearSounds drops the override so the config value applies again.
func (s *SharedState) ClearSounds() {
	s.SoundsEnabled = nil
	s.SoundsLastTransition = nil
}
