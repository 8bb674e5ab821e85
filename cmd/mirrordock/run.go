package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/mirrordock/internal/config"
	"github.com/1broseidon/mirrordock/internal/dock"
	"github.com/1broseidon/mirrordock/internal/hotkeys"
	"github.com/1broseidon/mirrordock/internal/ipc"
	"github.com/1broseidon/mirrordock/internal/logging"
	"github.com/1broseidon/mirrordock/internal/mirror"
	"github.com/1broseidon/mirrordock/internal/platform"
	"github.com/1broseidon/mirrordock/internal/presets"
	"github.com/1broseidon/mirrordock/internal/runtimepath"
	"github.com/1broseidon/mirrordock/internal/session"
	"github.com/1broseidon/mirrordock/internal/tui"
)

const cleanupTimeout = 5 * time.Second

func runApp(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/mirrordock/config.yaml)")
	headless := fs.Bool("headless", false, "Run the frame loop without the control panel")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: mirrordock run [--path PATH] [--headless]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Start both mirroring processes and dock them into one window.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "run takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	statePath := config.DefaultStatePath()
	if st, ok, err := config.LoadState(statePath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: ignoring state file: %v\n", err)
	} else if ok {
		config.ApplyState(res, st, statePath)
	}
	cfg := res.Config

	interactive := !*headless && tui.Interactive()
	logCfg := cfg.GetLoggingConfig()
	logger, closer, err := logging.New(logging.Options{
		Level:     cfg.LogLevel,
		File:      logCfg.File,
		MaxSizeMB: logCfg.MaxSizeMB,
		MaxFiles:  logCfg.MaxFiles,
		Stderr:    !interactive,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return 1
	}
	defer closer.Close()

	if err := ipc.NewClient().Ping(); err == nil {
		fmt.Fprintln(os.Stderr, "mirrordock is already running")
		return 1
	}

	a := &app{
		cfg:         cfg,
		logger:      logger,
		statePath:   statePath,
		interactive: interactive,
	}
	if err := a.run(); err != nil {
		logger.Error("mirrordock stopped with error", "error", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	statePath   string
	interactive bool
}

func (a *app) run() error {
	cfg := a.cfg
	logger := a.logger
	logger.Info("mirrordock starting", "scale", cfg.Scale, "presets", cfg.ResolvedPresetsFile())

	binDir := cfg.ResolvedBinDir()
	scrcpyBin, err := mirror.FindBinary(cfg.Mirror.Scrcpy, binDir)
	if err != nil {
		return err
	}
	adbBin, err := mirror.FindBinary(cfg.Mirror.ADB, binDir)
	if err != nil {
		return err
	}
	adb := mirror.NewADB(adbBin, logger.With("component", "adb"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serial, err := adb.DetectDevice(ctx)
	if err != nil {
		return err
	}
	logger.Info("device detected", "serial", serial)

	native, err := platform.NewNative()
	if err != nil {
		return fmt.Errorf("failed to connect to display: %w", err)
	}
	defer native.Close()

	sup := mirror.NewSupervisor(mirror.Config{
		Scrcpy:           scrcpyBin,
		ADB:              adb,
		Scale:            cfg.Scale,
		MaxFPS:           cfg.Mirror.MaxFPS,
		RenderDriver:     cfg.Mirror.RenderDriver,
		Audio:            cfg.Mirror.Audio,
		Retries:          cfg.Mirror.Retries,
		LogDir:           cfg.ResolvedMirrorLogDir(),
		PrimaryTitle:     cfg.Surfaces.Primary.Title,
		SecondaryTitle:   cfg.Surfaces.Secondary.Title,
		PrimaryDisplay:   cfg.Surfaces.Primary.DisplayID,
		SecondaryDisplay: cfg.Surfaces.Secondary.DisplayID,
		Logger:           logger.With("component", "mirror"),
	})

	ctrl := dock.New(native, sup.Primary(), sup.Secondary(), dock.Config{
		PollInterval:  cfg.DockPollInterval(),
		SyncInterval:  cfg.DockSyncInterval(),
		SkipUnchanged: cfg.Dock.SkipUnchanged,
		FocusOnToggle: cfg.Dock.FocusOnToggle,
		Logger:        logger.With("component", "dock"),
	})
	ctrl.OnShutdown(cancel)

	store := presets.NewStore(cfg.ResolvedPresetsFile(), logger.With("component", "presets"))
	sess := session.New(session.Config{
		Dock:          ctrl,
		Primary:       sup.Primary(),
		Secondary:     sup.Secondary(),
		Presets:       store,
		Scale:         cfg.Scale,
		Layout:        cfg.Layout,
		ScreenshotDir: cfg.ResolvedScreenshotDir(),
		Logger:        logger.With("component", "session"),
	})

	a.registerHotkeys(native, sess)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return fmt.Errorf("failed to resolve IPC socket: %w", err)
	}
	ipcServer := ipc.NewServer(socketPath, sess, logger.With("component", "ipc"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Any failing goroutine or signal stops the whole application.
		select {
		case sig := <-sigCh:
			logger.Info("signal received", "signal", sig)
		case <-gctx.Done():
		}
		ctrl.Shutdown()
		return nil
	})
	g.Go(func() error {
		return ctrl.RunContainer(gctx, dock.ContainerConfig{
			Title: cfg.Container.Title,
			X:     cfg.Container.X,
			Y:     cfg.Container.Y,
		})
	})
	g.Go(func() error {
		ctrl.RunMonitor(gctx)
		return nil
	})
	g.Go(func() error {
		return ipcServer.Serve(gctx)
	})
	g.Go(func() error {
		if err := store.Watch(gctx, presets.DefaultDebounce, sess.ReloadPresets); err != nil {
			logger.Warn("preset watcher disabled", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		sup.Watch(gctx, mirror.DefaultWatchInterval, func(surface *mirror.Surface, err error) {
			logger.Warn("mirroring process ended, shutting down", "surface", surface.Label(), "error", err)
			ctrl.Shutdown()
		})
		return nil
	})
	g.Go(func() error {
		err := sup.Start(gctx, serial)
		if err == nil || errors.Is(err, mirror.ErrStopped) || gctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to start mirroring: %w", err)
	})
	g.Go(func() error {
		if a.interactive {
			return tui.Run(gctx, sess)
		}
		tui.RunHeadless(gctx, sess, tui.FrameInterval)
		return nil
	})

	runErr := g.Wait()
	a.cleanup(sup, sess)
	return runErr
}

func (a *app) registerHotkeys(native platform.Native, sess *session.Session) {
	if a.cfg.Hotkeys.Toggle == "" {
		return
	}
	handler, err := hotkeys.NewHandler(native, a.logger.With("component", "hotkeys"))
	if err != nil {
		a.logger.Info("global hotkeys unavailable", "reason", err)
		return
	}
	if err := handler.RegisterToggle(a.cfg.Hotkeys.Toggle, sess); err != nil {
		a.logger.Warn("toggle hotkey not registered", "error", err)
	}
}

// cleanup stops the mirroring processes and remembers scale and layout for
// the next launch.
func (a *app) cleanup(sup *mirror.Supervisor, sess *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	sup.Stop(ctx)

	st := sess.PersistentState()
	if err := config.SaveState(a.statePath, st); err != nil {
		a.logger.Warn("failed to save state", "error", err)
		return
	}
	a.logger.Info("state saved", "path", a.statePath, "scale", st.Scale)
}
