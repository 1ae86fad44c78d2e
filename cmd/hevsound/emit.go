package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hevsound/internal/arbiter"
	"github.com/jmylchreest/hevsound/internal/audio"
	"github.com/jmylchreest/hevsound/internal/config"
	"github.com/jmylchreest/hevsound/internal/daemon"
	"github.com/jmylchreest/hevsound/internal/model"
	"github.com/jmylchreest/hevsound/internal/store"
)

var emitOpts struct {
	local  bool
	source string
}

var errDaemonNotRunning = errors.New("hevsoundd is not running (start it, or use --local)")

var emitCmd = &cobra.Command{
	Use:   "emit <event>",
	Short: "Send an event to hevsoundd",
	Long: `Send an editor event to hevsoundd, which decides whether its sound plays.

Events: startup, file_save, file_created, file_deleted, file_open,
file_closed, tab_switch, terminal, terminal_error. The editor setting names
(saveFile, tabSwitch, ...) are accepted too.

With --local the event is arbitrated and played by this process, without a
daemon. Local plays are recorded in the play journal like daemon plays.

Examples:
  # From an editor save hook
  hevsound emit file_save

  # From a shell prompt hook when the last command failed
  hevsound emit terminal_error --source zsh

  # Without a daemon
  hevsound emit startup --local`,
	Args: cobra.ExactArgs(1),
	RunE: runEmit,
}

func init() {
	rootCmd.AddCommand(emitCmd)

	emitCmd.Flags().BoolVar(&emitOpts.local, "local", false,
		"Arbitrate and play in this process instead of the daemon")
	emitCmd.Flags().StringVar(&emitOpts.source, "source", sourceCLI,
		"Source recorded with the event")
}

func runEmit(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseEventKind(args[0])
	if err != nil {
		return err
	}

	if emitOpts.local {
		return emitLocal(kind, emitOpts.source)
	}

	client, ok := connectDaemon()
	if !ok {
		return errDaemonNotRunning
	}
	defer client.Close()

	ctx, cancel := requestContext()
	defer cancel()

	accepted, err := client.Emit(ctx, kind, emitOpts.source)
	if err != nil {
		return err
	}
	if !accepted {
		logger.Info("event not played: sounds or event disabled", "event", kind)
	}
	return nil
}

// emitLocal runs the same gate and arbiter as the daemon for one event and
// waits for the sound to finish.
func emitLocal(kind model.EventKind, source string) error {
	backend, err := audio.NewBackend(cfg.Audio.Backend, runtime.GOOS, exec.LookPath, logger)
	if err != nil {
		return err
	}
	if closer, ok := backend.(interface{ Close() }); ok {
		defer closer.Close()
	}
	if result := daemon.CheckDependencies(backend, runtime.GOOS, exec.LookPath, nil, logger); !result.OK() {
		fmt.Fprintln(os.Stderr, result.Message())
	}

	state, err := store.LoadSharedState(config.StatePath())
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	arb := arbiter.New(arbiter.WithLogger(logger))
	defer arb.Close()
	manager := audio.NewManager(cfg, backend, logger)
	dispatcher := daemon.NewDispatcher(cfg, state, config.StatePath(), arb, manager, logger)

	if err := config.EnsureDataDir(); err == nil {
		if journal, err := store.OpenJournal(config.JournalPath()); err != nil {
			logger.Warn("play journal disabled", "error", err)
		} else {
			defer journal.Close()
			dispatcher.SetJournal(journal)
		}
	}

	played := make(chan struct{}, 1)
	dispatcher.OnPlayed(func(model.PlayRecord) {
		select {
		case played <- struct{}{}:
		default:
		}
	})

	accepted, err := dispatcher.Dispatch(kind, source)
	if err != nil {
		return err
	}
	if !accepted {
		logger.Info("event not played: sounds or event disabled", "event", kind)
		return nil
	}

	// The hook runs on the playback goroutine, so once it has fired
	// Wait covers the sound.
	select {
	case <-played:
	case <-time.After(arbiter.Debounce + time.Second):
		logger.Warn("sound did not start", "event", kind)
	}
	manager.Wait()
	return nil
}
