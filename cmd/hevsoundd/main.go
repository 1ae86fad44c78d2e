// Package main is the entry point for the hevsoundd sound daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/hevsound/internal/arbiter"
	"github.com/jmylchreest/hevsound/internal/audio"
	"github.com/jmylchreest/hevsound/internal/config"
	"github.com/jmylchreest/hevsound/internal/daemon"
	"github.com/jmylchreest/hevsound/internal/dbus"
	"github.com/jmylchreest/hevsound/internal/model"
	"github.com/jmylchreest/hevsound/internal/notify"
	"github.com/jmylchreest/hevsound/internal/source"
	"github.com/jmylchreest/hevsound/internal/store"
)

var (
	// Build-time variables
	version = "dev"
)

// pathList collects a repeatable string flag.
type pathList []string

func (p *pathList) String() string {
	return strings.Join(*p, ",")
}

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func main() {
	var watch pathList
	readStdin := flag.Bool("stdin", false, "Read events from stdin, one per line")
	noDBus := flag.Bool("no-dbus", false, "Do not claim the session bus name")
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/hevsound/hevsound.toml)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Var(&watch, "watch", "Directory to watch for file events (repeatable)")
	flag.Parse()

	if *showVersion {
		fmt.Println("hevsoundd version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	opts := options{
		configPath: *configPath,
		readStdin:  *readStdin,
		noDBus:     *noDBus,
		watch:      watch,
	}
	if err := run(opts, logger); err != nil {
		logger.Error("hevsoundd failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	readStdin  bool
	noDBus     bool
	watch      []string
}

func run(opts options, logger *slog.Logger) error {
	logger.Info("starting hevsoundd", "version", version)

	configPath := opts.configPath
	if configPath == "" {
		configPath = config.ConfigPath()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	statePath := config.StatePath()
	sharedState, err := store.LoadSharedState(statePath)
	if err != nil {
		logger.Warn("failed to load shared state, using defaults", "error", err)
		sharedState = store.DefaultSharedState()
	}

	// Desktop notifications are optional; without a bus they are only logged.
	var sender notify.Sender
	if busSender, err := notify.NewBusSender(); err != nil {
		logger.Debug("desktop notifications unavailable", "error", err)
	} else {
		defer busSender.Close()
		sender = busSender
	}
	notifier := notify.NewNotifier(sender, logger)
	notifier.SetEnabled(cfg.Notify.Enabled)
	notifier.SetMinInterval(cfg.Notify.Interval.Duration())

	if _, err := daemon.ShowWalkthrough(statePath, notifier, logger); err != nil {
		logger.Warn("failed to record walkthrough", "error", err)
	}

	backend, err := audio.NewBackend(cfg.Audio.Backend, runtime.GOOS, exec.LookPath, logger)
	if err != nil {
		return fmt.Errorf("failed to create audio backend: %w", err)
	}
	if closer, ok := backend.(interface{ Close() }); ok {
		defer closer.Close()
	}
	daemon.CheckDependencies(backend, runtime.GOOS, exec.LookPath, notifier, logger)

	arb := arbiter.New(arbiter.WithLogger(logger))
	manager := audio.NewManager(cfg, backend, logger)

	journal, err := store.OpenJournal(config.JournalPath())
	if err != nil {
		logger.Warn("play journal disabled", "error", err)
	} else {
		defer journal.Close()
		if err := journal.Trim(cfg.Journal.Keep); err != nil {
			logger.Warn("failed to trim journal", "error", err)
		}
	}

	dispatcher := daemon.NewDispatcher(cfg, sharedState, statePath, arb, manager, logger)
	dispatcher.SetNotifier(notifier)
	if journal != nil {
		dispatcher.SetJournal(journal)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.DBus.Enabled && !opts.noDBus {
		service := dbus.NewService(dispatcher, logger)
		if err := service.Start(); err != nil {
			logger.Warn("D-Bus service unavailable", "error", err)
		} else {
			defer func() { _ = service.Stop() }()
			dispatcher.OnPlayed(func(rec model.PlayRecord) {
				if err := service.EmitSoundPlayed(rec.Event); err != nil {
					logger.Debug("failed to emit played signal", "error", err)
				}
			})
		}
	}

	if err := manager.Start(ctx); err != nil {
		logger.Warn("failed to start audio manager", "error", err)
	}

	configWatcher := daemon.NewConfigWatcher(configPath, logger)
	configWatcher.SetReloadCallback(func(newCfg *config.Config) {
		logger.Info("config reloaded")
		dispatcher.UpdateConfig(newCfg)
	})
	configWatcher.SetErrorCallback(func(err error) {
		notifier.NotifyConfigError(err)
	})
	configWatcher.Start(ctx, cfg)
	defer configWatcher.Stop()

	stateWatcher := daemon.NewStateWatcher(statePath, logger)
	stateWatcher.Start(ctx, dispatcher.ReloadState)
	defer stateWatcher.Stop()

	var sources []source.Source
	roots := make([]string, 0, len(cfg.Watch.Paths)+len(opts.watch))
	for _, p := range append(append([]string{}, cfg.Watch.Paths...), opts.watch...) {
		roots = append(roots, config.ExpandPath(p))
	}
	if len(roots) > 0 {
		sources = append(sources, source.NewWorkspace(roots, cfg.Watch.Ignore, dispatcher, logger))
	}
	if opts.readStdin {
		sources = append(sources, source.NewStdin(dispatcher, logger))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			logger.Debug("event source started", "source", src.Name())
			return src.Run(gctx)
		})
	}

	if _, err := dispatcher.Dispatch(model.EventStartup, "daemon"); err != nil {
		logger.Warn("failed to dispatch startup sound", "error", err)
	}

	logger.Info("hevsoundd ready", "sources", len(sources), "sounds", dispatcher.SoundsEnabled())

	<-gctx.Done()
	err = g.Wait()
	cancel()

	// No new sounds may start once the arbiter is closed; then wait for
	// the ones already playing.
	arb.Close()
	manager.Stop()

	logger.Info("hevsoundd stopped")
	return err
}
