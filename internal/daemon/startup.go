package daemon

import (
	"log/slog"

	"github.com/jmylchreest/hevsound/internal/audio"
	"github.com/jmylchreest/hevsound/internal/deps"
	"github.com/jmylchreest/hevsound/internal/notify"
	"github.com/jmylchreest/hevsound/internal/store"
)

// ShowWalkthrough sends the welcome notification the first time the
// daemon runs and records that it was shown. It reports whether it was
// shown now.
func ShowWalkthrough(statePath string, notifier *notify.Notifier, logger *slog.Logger) (bool, error) {
	state, err := store.LoadSharedState(statePath)
	if err != nil {
		return false, err
	}
	if state.WalkthroughShown {
		return false, nil
	}

	if notifier != nil {
		notifier.NotifyWelcome()
	}
	if _, err := store.UpdateSharedState(statePath, func(s *store.SharedState) {
		s.WalkthroughShown = true
	}); err != nil {
		return false, err
	}

	if logger != nil {
		logger.Info("first run, welcome shown")
	}
	return true, nil
}

// CheckDependencies verifies the command player when backend plays through
// one. A missing player is logged and reported once as a notification;
// playback itself is left to fail per sound.
func CheckDependencies(backend audio.Backend, goos string, lookPath audio.LookPathFunc,
	notifier *notify.Notifier, logger *slog.Logger) deps.Result {
	if logger == nil {
		logger = slog.Default()
	}

	if backend.Name() != "command" {
		return deps.Result{GOOS: goos, Found: true}
	}

	result := deps.Check(goos, lookPath)
	if !result.OK() {
		logger.Warn("sound player not found", "tool", result.Tool, "remediation", result.Remediation)
		if notifier != nil {
			notifier.NotifyDependencyMissing(result.Tool, result.Remediation)
		}
	}
	return result
}
