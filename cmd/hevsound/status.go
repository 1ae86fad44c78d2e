package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hevsound/internal/config"
	"github.com/jmylchreest/hevsound/internal/output"
	"github.com/jmylchreest/hevsound/internal/store"
)

var statusOpts struct {
	format string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether sounds are on and what played last",
	Long: `Show the master switch, whether hevsoundd is running, and the last
sound played.

When the daemon is running its view is used; otherwise the state file and
the play journal are read directly.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	for _, cmd := range []*cobra.Command{rootCmd, statusCmd, soundsCmd, soundsStatusCmd} {
		cmd.Flags().StringVarP(&statusOpts.format, "format", "f", "plain",
			"Output format (plain, json, yaml)")
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter(statusOpts.format, output.DefaultFormatterOptions())
	if err != nil {
		return err
	}

	status, err := collectStatus()
	if err != nil {
		return err
	}
	return formatter.Status(os.Stdout, status)
}

// collectStatus merges the shared state, the journal and, when it is
// running, the daemon.
func collectStatus() (output.Status, error) {
	state, err := store.LoadSharedState(config.StatePath())
	if err != nil {
		return output.Status{}, err
	}

	status := output.Status{Enabled: state.SoundsOn(cfg.Sounds.Enabled)}
	if t := state.SoundsLastTransition; t != nil {
		status.Reason = t.Reason
		status.ChangedAt = t.Timestamp
	}

	if client, ok := connectDaemon(); ok {
		defer client.Close()
		ctx, cancel := requestContext()
		defer cancel()

		ds, err := client.GetStatus(ctx)
		if err == nil {
			status.Daemon = true
			status.Enabled = ds.Enabled
			status.LastEvent = ds.LastEvent
			status.LastPlayedAt = ds.LastPlayedAt
			status.Pending = ds.Pending
			if ds.LastPriority >= 0 {
				priority := ds.LastPriority
				status.LastPriority = &priority
			}
			return status, nil
		}
		logger.Warn("failed to query daemon", "error", err)
	}

	records, err := store.ReadJournal(config.JournalPath())
	if err != nil {
		logger.Warn("failed to read journal", "error", err)
	}
	if n := len(records); n > 0 {
		status.LastEvent = records[n-1].Event
		status.LastPlayedAt = records[n-1].PlayedAt
	}
	return status, nil
}
