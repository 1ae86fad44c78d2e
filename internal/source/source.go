// Package source provides the event sources that feed the daemon.
package source

import (
	"context"

	"github.com/jmylchreest/hevsound/internal/model"
)

// Source produces editor events until its context is cancelled.
type Source interface {
	// Name returns the source identifier (e.g., "stdin", "workspace").
	Name() string

	// Run delivers events to the dispatcher. It blocks until ctx is done
	// or the source is exhausted.
	Run(ctx context.Context) error
}

// Dispatcher receives events from a source.
type Dispatcher interface {
	Dispatch(kind model.EventKind, source string) (bool, error)
}

// DispatchFunc adapts a function to the Dispatcher interface.
type DispatchFunc func(kind model.EventKind, source string) (bool, error)

// Dispatch calls f.
func (f DispatchFunc) Dispatch(kind model.EventKind, source string) (bool, error) {
	return f(kind, source)
}

// SourceError represents an event source failure.
type SourceError struct {
	Source  string
	Message string
	Line    int // 1-based input line, 0 if not applicable
	Err     error
}

func (e *SourceError) Error() string {
	msg := e.Source + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
