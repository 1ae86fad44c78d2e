package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hevsound/internal/config"
	"github.com/jmylchreest/hevsound/internal/model"
	"github.com/jmylchreest/hevsound/internal/output"
)

var eventsOpts struct {
	format string
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List events and their sounds",
	Long: `List every event with its enabled flag, sound file, volume and
priority as resolved from the config.`,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().StringVarP(&eventsOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml)")
}

func runEvents(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter(eventsOpts.format, output.DefaultFormatterOptions())
	if err != nil {
		return err
	}
	return formatter.Events(os.Stdout, eventRows(cfg))
}

// eventRows resolves every event against c in display order.
func eventRows(c *config.Config) []output.EventRow {
	rows := make([]output.EventRow, 0, len(model.AllEvents()))
	for _, kind := range model.AllEvents() {
		sound, _ := c.EventSound(kind)
		rows = append(rows, output.EventRow{
			Event:    kind,
			Label:    kind.Label(),
			Enabled:  c.IsEventEnabled(kind),
			File:     sound.File,
			Volume:   sound.Volume,
			Priority: sound.Priority,
		})
	}
	return rows
}
