package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hevsound/internal/config"
	"github.com/jmylchreest/hevsound/internal/notify"
	"github.com/jmylchreest/hevsound/internal/store"
)

var soundsOpts struct {
	quiet bool // Suppress output
}

// soundsCmd represents the sounds command group.
var soundsCmd = &cobra.Command{
	Use:   "sounds",
	Short: "Turn all HEV sounds on or off",
	Long: `Turn all hevsound sounds on or off.

The master switch is stored in the shared state file and overrides
[sounds] enabled from the config. A running hevsoundd picks up the change
immediately.

Use 'hevsound sounds status' to check the current state.
Use 'hevsound sounds on' to activate sounds.
Use 'hevsound sounds off' to deactivate sounds.
Use 'hevsound sounds toggle' to flip the switch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd, args)
	},
}

var soundsOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Activate HEV sounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSounds(true, "sounds on")
	},
}

var soundsOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Deactivate HEV sounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSounds(false, "sounds off")
	},
}

var soundsToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle HEV sounds",
	RunE:  soundsToggleRun,
}

var soundsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether HEV sounds are on",
	RunE:  runStatus,
}

// soundsResetCmd drops the override so the config value applies again.
var soundsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Use [sounds] enabled from the config again",
	RunE:  soundsResetRun,
}

func init() {
	soundsCmd.AddCommand(soundsOnCmd)
	soundsCmd.AddCommand(soundsOffCmd)
	soundsCmd.AddCommand(soundsToggleCmd)
	soundsCmd.AddCommand(soundsStatusCmd)
	soundsCmd.AddCommand(soundsResetCmd)

	soundsCmd.PersistentFlags().BoolVarP(&soundsOpts.quiet, "quiet", "q", false,
		"Suppress output")

	rootCmd.AddCommand(soundsCmd)
}

func soundsToggleRun(cmd *cobra.Command, args []string) error {
	state, err := store.LoadSharedState(config.StatePath())
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	enabled := !state.SoundsOn(cfg.Sounds.Enabled)
	return setSounds(enabled, "sounds toggle")
}

// setSounds switches sounds through the daemon when it is running, so its
// notification fires straight away, and through the state file otherwise.
func setSounds(enabled bool, reason string) error {
	if client, ok := connectDaemon(); ok {
		defer client.Close()

		ctx, cancel := requestContext()
		defer cancel()
		err := client.SetEnabled(ctx, enabled)
		if err == nil {
			printSounds(enabled)
			return nil
		}
		logger.Warn("daemon request failed, writing state directly", "error", err)
	}

	if _, err := store.UpdateSharedState(config.StatePath(), func(s *store.SharedState) {
		s.SetSounds(enabled, reason, sourceCLI)
	}); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	printSounds(enabled)
	return nil
}

func soundsResetRun(cmd *cobra.Command, args []string) error {
	if _, err := store.UpdateSharedState(config.StatePath(), func(s *store.SharedState) {
		s.ClearSounds()
	}); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	printSounds(cfg.Sounds.Enabled)
	return nil
}

func printSounds(enabled bool) {
	if !soundsOpts.quiet {
		fmt.Fprintln(os.Stdout, notify.SoundsMessage(enabled))
	}
}
