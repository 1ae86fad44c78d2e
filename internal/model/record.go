package model

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// PlayRecord describes a sound that actually played.
type PlayRecord struct {
	ID       string    `json:"id" yaml:"id"`
	Event    EventKind `json:"event" yaml:"event"`
	Source   string    `json:"source" yaml:"source"`
	File     string    `json:"file" yaml:"file"`
	Volume   float64   `json:"volume" yaml:"volume"`
	Priority int       `json:"priority" yaml:"priority"`
	Backend  string    `json:"backend" yaml:"backend"`
	PlayedAt int64     `json:"played_at" yaml:"played_at"` // Unix milliseconds
}

// NewID returns a new ULID string.
func NewID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

// PlayedTime returns PlayedAt as a time.Time.
func (r *PlayRecord) PlayedTime() time.Time {
	return time.UnixMilli(r.PlayedAt)
}

// Validate checks that the record has the fields the journal relies on.
func (r *PlayRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("play record: id cannot be empty")
	}
	if !r.Event.Valid() {
		return fmt.Errorf("play record: %w: %q", ErrUnknownEvent, r.Event)
	}
	if r.PlayedAt <= 0 {
		return fmt.Errorf("play record: played_at must be greater than 0")
	}
	return nil
}
