package audio

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/jmylchreest/hevsound/internal/config"
)

// Backend plays a sound file at a volume between 0.0 and 1.0.
// Play may block until the sound has finished.
type Backend interface {
	Name() string
	Play(path string, volume float64) error
}

// Invalidator is implemented by backends that cache decoded sounds.
type Invalidator interface {
	Invalidate(path string)
}

// Preloader is implemented by backends that can decode sounds ahead of
// their first play.
type Preloader interface {
	Preload(path string) error
}

// LookPathFunc finds an executable in PATH.
type LookPathFunc func(file string) (string, error)

// NewBackend creates the backend named by kind. For "auto" the command
// backend is used when the platform player is installed, otherwise the
// native backend.
func NewBackend(kind, goos string, lookPath LookPathFunc, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if goos == "" {
		goos = runtime.GOOS
	}
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	switch kind {
	case config.BackendNative:
		return NewNativeBackend(logger), nil
	case config.BackendCommand:
		return NewCommandBackend(goos, logger)
	case config.BackendAuto, "":
		tool := CommandTool(goos)
		if tool != "" {
			if _, err := lookPath(tool); err == nil {
				return NewCommandBackend(goos, logger)
			}
		}
		logger.Debug("command player not found, using native backend", "goos", goos, "tool", tool)
		return NewNativeBackend(logger), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", kind)
	}
}
