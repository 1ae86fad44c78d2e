// Package main provides the CLI entrypoint for hevsound.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hevsound/internal/config"
	"github.com/jmylchreest/hevsound/internal/dbus"
	"github.com/jmylchreest/hevsound/internal/output"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// skipConfigAnnotation marks commands that must run even when the config
// file is invalid.
const skipConfigAnnotation = "hevsound/skip-config"

// sourceCLI is the event source recorded for requests made by this command.
const sourceCLI = "cli"

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		timeout    time.Duration
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hevsound",
	Short: "HEV suit sounds for your editor",
	Long: `hevsound plays Half-Life HEV suit sounds for editor lifecycle events.

Events are sent to the hevsoundd daemon, which decides which sound plays
when several arrive together: higher priority sounds win, bursts are
debounced, and repeats are held off by a short cooldown.

Running hevsound without a subcommand shows whether sounds are on.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		if cmd.Annotations[skipConfigAnnotation] == "true" {
			cfg = config.DefaultConfig()
			return nil
		}

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/hevsound/hevsound.toml)")
	rootCmd.PersistentFlags().DurationVar(&globalOpts.timeout, "timeout", 5*time.Second,
		"Timeout for daemon requests")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// configPath returns the config file in use.
func configPath() string {
	if globalOpts.configPath != "" {
		return globalOpts.configPath
	}
	return config.ConfigPath()
}

// connectDaemon returns a client when hevsoundd is running. Callers must
// close it.
func connectDaemon() (*dbus.Client, bool) {
	client, err := dbus.NewClient()
	if err != nil {
		logger.Debug("session bus unavailable", "error", err)
		return nil, false
	}
	if !client.Running() {
		client.Close()
		return nil, false
	}
	return client, true
}

// requestContext bounds a single daemon request.
func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), globalOpts.timeout)
}

// newFormatter parses format and returns a formatter for it.
func newFormatter(format string, opts output.FormatterOptions) (output.Formatter, error) {
	ft, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return output.NewFormatter(ft, opts), nil
}
