// Package output provides output formatters for play history, event
// settings and daemon status.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jmylchreest/hevsound/internal/deps"
	"github.com/jmylchreest/hevsound/internal/model"
)

// Formatter writes hevsound data to a writer.
type Formatter interface {
	// Records writes play history.
	Records(w io.Writer, records []model.PlayRecord) error
	// Events writes per-event settings.
	Events(w io.Writer, events []EventRow) error
	// Status writes the sounds status.
	Status(w io.Writer, status Status) error
	// Check writes a dependency check result.
	Check(w io.Writer, result deps.Result) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (FormatType, error) {
	switch FormatType(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPlain:
		return FormatPlain, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid format %q (use plain, json, or yaml)", s)
	}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template  string           // Custom template for plain history lines
	ShowIndex bool             // Show 1-based index prefix
	ShowTime  bool             // Show relative time
	ShowFile  bool             // Show the sound file
	Compact   bool             // Single-line JSON
	Now       func() time.Time // Reference time for relative times
}

// DefaultFormatterOptions returns sensible defaults for terminal output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex: true,
		ShowTime:  true,
	}
}

func (o FormatterOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// EventRow is one event's effective settings.
type EventRow struct {
	Event    model.EventKind `json:"event" yaml:"event"`
	Label    string          `json:"label" yaml:"label"`
	Enabled  bool            `json:"enabled" yaml:"enabled"`
	File     string          `json:"file" yaml:"file"`
	Volume   float64         `json:"volume" yaml:"volume"`
	Priority int             `json:"priority" yaml:"priority"`
}

// Status describes whether sounds are on and what played last.
type Status struct {
	Enabled      bool            `json:"enabled" yaml:"enabled"`
	Daemon       bool            `json:"daemon" yaml:"daemon"`
	Reason       string          `json:"reason,omitempty" yaml:"reason,omitempty"`
	ChangedAt    int64           `json:"changed_at,omitempty" yaml:"changed_at,omitempty"` // Unix seconds
	LastEvent    model.EventKind `json:"last_event,omitempty" yaml:"last_event,omitempty"`
	LastPlayedAt int64           `json:"last_played_at,omitempty" yaml:"last_played_at,omitempty"` // Unix milliseconds

	// Reported by a running daemon only.
	Pending      bool `json:"pending,omitempty" yaml:"pending,omitempty"`
	LastPriority *int `json:"last_priority,omitempty" yaml:"last_priority,omitempty"`
}
