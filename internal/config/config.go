// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/hevsound/internal/model"
)

// Audio backends.
const (
	BackendAuto    = "auto"
	BackendNative  = "native"
	BackendCommand = "command"
)

// Default configuration values.
const (
	DefaultMasterVolume = 100
	DefaultJournalKeep  = 1000
	DefaultNotifyRate   = 5 * time.Second
)

// Config represents the hevsound configuration.
// Loaded from ~/.config/hevsound/hevsound.toml
type Config struct {
	Sounds  SoundsConfig                    `toml:"sounds"`
	Audio   AudioConfig                     `toml:"audio"`
	Events  map[model.EventKind]EventConfig `toml:"events"`
	Watch   WatchConfig                     `toml:"watch"`
	DBus    DBusConfig                      `toml:"dbus"`
	Notify  NotifyConfig                    `toml:"notify"`
	Journal JournalConfig                   `toml:"journal"`
}

// SoundsConfig holds the master switch.
type SoundsConfig struct {
	Enabled bool `toml:"enabled"` // Initial state; the shared state file overrides it
	Volume  int  `toml:"volume"`  // 0-100, scales every event volume
}

// AudioConfig selects how sounds are played.
type AudioConfig struct {
	Backend  string `toml:"backend"`   // "auto", "native", or "command"
	SoundDir string `toml:"sound_dir"` // Directory holding the sound files
}

// EventConfig configures the sound for a single event.
type EventConfig struct {
	Enabled  bool    `toml:"enabled"`
	File     string  `toml:"file"`     // Relative to sound_dir unless absolute
	Volume   float64 `toml:"volume"`   // 0.0-1.0
	Priority int     `toml:"priority"` // Higher preempts lower
}

// WatchConfig configures the workspace file watcher.
type WatchConfig struct {
	Paths  []string `toml:"paths"`  // Directories to watch recursively
	Ignore []string `toml:"ignore"` // Base name glob patterns to skip (e.g. ".git", "*.swp")
}

// DBusConfig configures the session bus service.
type DBusConfig struct {
	Enabled bool `toml:"enabled"`
}

// NotifyConfig configures desktop notifications sent by hevsound itself.
type NotifyConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"` // Minimum time between identical messages
}

// JournalConfig configures the play journal.
type JournalConfig struct {
	Keep int `toml:"keep"` // Entries kept when trimming (0 = unlimited)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	events := make(map[model.EventKind]EventConfig)
	for _, kind := range model.AllEvents() {
		s, _ := model.DefaultSound(kind)
		events[kind] = EventConfig{
			Enabled:  true,
			File:     s.File,
			Volume:   s.Volume,
			Priority: s.Priority,
		}
	}

	return &Config{
		Sounds: SoundsConfig{
			Enabled: true,
			Volume:  DefaultMasterVolume,
		},
		Audio: AudioConfig{
			Backend:  BackendAuto,
			SoundDir: filepath.Join(DataDir(), "audio"),
		},
		Events: events,
		Watch: WatchConfig{
			Paths:  []string{},
			Ignore: []string{".git", "node_modules", ".hg", ".svn", "vendor", "*.swp", "*.swx", "*~", ".#*", "4913"},
		},
		DBus: DBusConfig{
			Enabled: true,
		},
		Notify: NotifyConfig{
			Enabled:  true,
			Interval: Duration(DefaultNotifyRate),
		},
		Journal: JournalConfig{
			Keep: DefaultJournalKeep,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "hevsound", "hevsound.toml")
}

// DataDir returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "hevsound")
}

// StatePath returns the path to the shared state file.
func StatePath() string {
	return filepath.Join(DataDir(), "state.json")
}

// JournalPath returns the path to the play journal.
func JournalPath() string {
	return filepath.Join(DataDir(), "journal.jsonl")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataDir()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}

// eventOverlay distinguishes fields absent from the file from zero values,
// so a partial [events.x] table only overrides what it names.
type eventOverlay struct {
	Enabled  *bool    `toml:"enabled"`
	File     *string  `toml:"file"`
	Volume   *float64 `toml:"volume"`
	Priority *int     `toml:"priority"`
}

type fileOverlay struct {
	Events map[string]eventOverlay `toml:"events"`
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	events := cfg.Events
	cfg.Events = nil
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	var overlay fileOverlay
	if err := toml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Events = events
	for name, o := range overlay.Events {
		kind, err := model.ParseEventKind(name)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: [events.%s]: %w", name, err)
		}
		ec := cfg.Events[kind]
		if o.Enabled != nil {
			ec.Enabled = *o.Enabled
		}
		if o.File != nil {
			ec.File = *o.File
		}
		if o.Volume != nil {
			ec.Volume = *o.Volume
		}
		if o.Priority != nil {
			ec.Priority = *o.Priority
		}
		cfg.Events[kind] = ec
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed and writes atomically via a temp file.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// ValidBackends returns all valid audio backend values.
func ValidBackends() []string {
	return []string{BackendAuto, BackendNative, BackendCommand}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Sounds.Volume < 0 || c.Sounds.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Sounds.Volume)
	}

	if !slices.Contains(ValidBackends(), c.Audio.Backend) {
		return fmt.Errorf("invalid backend %q, must be one of: %v", c.Audio.Backend, ValidBackends())
	}

	for kind, ec := range c.Events {
		if !kind.Valid() {
			return fmt.Errorf("[events.%s]: %w", kind, model.ErrUnknownEvent)
		}
		if ec.Volume < 0 || ec.Volume > 1 {
			return fmt.Errorf("[events.%s] volume must be between 0.0 and 1.0, got %g", kind, ec.Volume)
		}
		if ec.Priority < 0 {
			return fmt.Errorf("[events.%s] priority must not be negative, got %d", kind, ec.Priority)
		}
		if ec.Enabled && strings.TrimSpace(ec.File) == "" {
			return fmt.Errorf("[events.%s] is enabled but has no file", kind)
		}
	}

	for _, pattern := range c.Watch.Ignore {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid watch ignore pattern %q: %w", pattern, err)
		}
	}

	if c.Journal.Keep < 0 {
		return fmt.Errorf("journal keep must not be negative, got %d", c.Journal.Keep)
	}

	return nil
}

// IsEventEnabled reports whether the per-event flag for kind is set.
// Events missing from the configuration are enabled.
func (c *Config) IsEventEnabled(kind model.EventKind) bool {
	ec, ok := c.Events[kind]
	if !ok {
		return true
	}
	return ec.Enabled
}

// EventSound returns the sound for kind with its file resolved against
// the sound directory.
func (c *Config) EventSound(kind model.EventKind) (model.Sound, bool) {
	ec, ok := c.Events[kind]
	if !ok {
		s, known := model.DefaultSound(kind)
		if !known {
			return model.Sound{}, false
		}
		ec = EventConfig{File: s.File, Volume: s.Volume, Priority: s.Priority}
	}

	file := ExpandPath(ec.File)
	if !filepath.IsAbs(file) {
		file = filepath.Join(ExpandPath(c.Audio.SoundDir), file)
	}

	return model.Sound{File: file, Volume: ec.Volume, Priority: ec.Priority}, true
}

// SetEventEnabled sets the per-event flag for kind.
func (c *Config) SetEventEnabled(kind model.EventKind, enabled bool) {
	ec, ok := c.Events[kind]
	if !ok {
		s, _ := model.DefaultSound(kind)
		ec = EventConfig{File: s.File, Volume: s.Volume, Priority: s.Priority}
	}
	ec.Enabled = enabled
	if c.Events == nil {
		c.Events = make(map[model.EventKind]EventConfig)
	}
	c.Events[kind] = ec
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Events = make(map[model.EventKind]EventConfig, len(c.Events))
	for k, v := range c.Events {
		clone.Events[k] = v
	}
	clone.Watch.Paths = slices.Clone(c.Watch.Paths)
	clone.Watch.Ignore = slices.Clone(c.Watch.Ignore)
	return &clone
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
