package audio

import (
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// CommandTool returns the command-line player used on goos, or "" if the
// platform has none.
func CommandTool(goos string) string {
	switch goos {
	case "linux":
		return "mpg123"
	case "darwin":
		return "afplay"
	case "windows":
		return "powershell"
	default:
		return ""
	}
}

// Command returns the player invocation for path at volume on goos.
func Command(goos, path string, volume float64) (string, []string, error) {
	volume = clampVolume(volume)

	switch goos {
	case "linux":
		scale := int(math.Floor(32768 * volume))
		return "mpg123", []string{"-q", "-f", strconv.Itoa(scale), path}, nil
	case "darwin":
		return "afplay", []string{"-v", strconv.FormatFloat(volume, 'f', -1, 64), path}, nil
	case "windows":
		script := fmt.Sprintf(
			"$wmp = New-Object -ComObject WMPlayer.OCX; $wmp.settings.volume = %d; $wmp.URL = '%s'; while($wmp.playState -ne 1) { Start-Sleep -Milliseconds 100 }",
			int(math.Floor(100*volume)),
			strings.ReplaceAll(path, "'", "''"),
		)
		return "powershell", []string{"-c", script}, nil
	default:
		return "", nil, fmt.Errorf("no command player for platform %q", goos)
	}
}

// RunFunc runs a command to completion.
type RunFunc func(name string, args ...string) error

// CommandBackend plays sounds by running the platform's player.
type CommandBackend struct {
	goos   string
	logger *slog.Logger
	run    RunFunc
}

// NewCommandBackend creates a command backend for goos.
func NewCommandBackend(goos string, logger *slog.Logger) (*CommandBackend, error) {
	if CommandTool(goos) == "" {
		return nil, fmt.Errorf("no command player for platform %q", goos)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandBackend{goos: goos, logger: logger, run: runCommand}, nil
}

// SetRunner replaces how commands are executed.
func (b *CommandBackend) SetRunner(run RunFunc) {
	b.run = run
}

// Name implements Backend.
func (b *CommandBackend) Name() string {
	return "command"
}

// Play runs the player and waits for it to exit.
func (b *CommandBackend) Play(path string, volume float64) error {
	name, args, err := Command(b.goos, path, volume)
	if err != nil {
		return err
	}

	err = b.run(name, args...)
	// WMPlayer's polling loop fails spuriously once playback ends.
	if err != nil && b.goos == "windows" && strings.Contains(err.Error(), "playState") {
		b.logger.Debug("ignoring player exit", "error", err)
		return nil
	}
	return err
}

func runCommand(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("%s: %w", name, err)
		}
		return fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return nil
}
