package main

import (
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hevsound/internal/audio"
	"github.com/jmylchreest/hevsound/internal/config"
	"github.com/jmylchreest/hevsound/internal/model"
	"github.com/jmylchreest/hevsound/internal/tui"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Toggle sounds interactively",
	Long: `Launch the interactive settings screen.

The screen lists the master switch and every event. Changes are written to
the config and state files on save, and a running hevsoundd reloads them.

Key bindings:
  j/k, ↑/↓    Move
  space       Toggle the selected line
  a / n       Enable / disable every event
  p           Preview the selected sound
  s           Save
  ?           Show help
  q           Quit`,
	RunE: runSettings,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
}

func runSettings(cmd *cobra.Command, args []string) error {
	backend, err := audio.NewBackend(cfg.Audio.Backend, runtime.GOOS, exec.LookPath, logger)
	if err != nil {
		return err
	}
	if closer, ok := backend.(interface{ Close() }); ok {
		defer closer.Close()
	}

	return tui.Run(tui.Options{
		Config:     cfg,
		ConfigPath: configPath(),
		StatePath:  config.StatePath(),
		Preview: func(kind model.EventKind, sound model.Sound) error {
			logger.Debug("previewing sound", "event", kind, "file", sound.File)
			return backend.Play(sound.File, sound.Volume)
		},
	})
}
