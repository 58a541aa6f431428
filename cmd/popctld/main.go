// Package main is the entry point for the popctld popup bar daemon.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/popctl/internal/audio"
	"github.com/jmylchreest/popctl/internal/config"
	"github.com/jmylchreest/popctl/internal/daemon"
	"github.com/jmylchreest/popctl/internal/dbus"
	"github.com/jmylchreest/popctl/internal/display"
	"github.com/jmylchreest/popctl/internal/metrics"
	"github.com/jmylchreest/popctl/internal/theme"
)

const appID = "io.github.jmylchreest.popctld"

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/popctl/popctl.toml)")
	noSound := flag.Bool("no-sound", false, "Do not play audio cues")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		println("popctld version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	run(logger, *configPath, *noSound)
}

func run(logger *slog.Logger, configPath string, noSound bool) {
	logger.Info("starting popctld", "version", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	app := adw.NewApplication(appID, 0)

	// Shared state between GTK main loop and signal handlers
	var (
		bar         *display.Bar
		themeLoader *theme.Loader
		services    *daemon.Services
		running     atomic.Bool
	)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	shutdown := func() {
		if !running.Load() {
			return
		}
		running.Store(false)
		if services != nil {
			services.Stop()
		}
		if themeLoader != nil {
			themeLoader.Stop()
		}
		if bar != nil {
			bar.Stop()
		}
	}

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()

		glib.IdleAdd(func() {
			shutdown()
			app.Quit()
		})
	}()

	app.ConnectActivate(func() {
		if running.Load() {
			logger.Warn("application already running")
			return
		}
		running.Store(true)

		themeLoader = theme.NewLoader(logger)
		if err := display.ApplyTheme(themeLoader, cfg.Theme); err != nil {
			logger.Warn("failed to apply theme", "error", err)
		}
		themeLoader.Watch(ctx)

		var sounds *audio.Manager
		if !noSound {
			sounds = audio.NewManager(cfg, logger)
		}

		services = daemon.NewServices(daemon.Options{
			Config:     cfg,
			ConfigPath: configPath,
			Logger:     logger,
			Audio:      sounds,
			Metrics:    metrics.New(),
			OnReload: func(newConfig *config.Config) {
				glib.IdleAdd(func() {
					if err := display.ApplyTheme(themeLoader, newConfig.Theme); err != nil {
						logger.Warn("failed to apply reloaded theme", "theme", newConfig.Theme.Name, "error", err)
					}
				})
			},
		})

		bar = display.NewBar(display.Options{
			App:           &app.Application,
			Config:        cfg,
			Logger:        logger,
			OnStateChange: services.OnStateChange,
			OnOpened:      services.OnOpened,
			OnClosed:      services.OnClosed,
		})
		if err := bar.Start(); err != nil {
			logger.Error("failed to start bar", "error", err)
			app.Quit()
			return
		}

		// Services block on the main loop through the bar, so they start
		// off it.
		go func() {
			if err := services.Start(ctx, bar); err != nil {
				logger.Error("failed to start services", "error", err)
			}
			logger.Info("popctld ready", "dbus_interface", dbus.Interface)
		}()

		// Create a hidden window to keep the application running
		// (GTK apps quit when all windows are closed)
		keepAliveWindow := gtk.NewWindow()
		keepAliveWindow.SetApplication(&app.Application)
		keepAliveWindow.SetDefaultSize(1, 1)
		keepAliveWindow.SetDecorated(false)
		keepAliveWindow.SetVisible(false)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		shutdown()
	})

	// Our flags are already parsed; GApplication only sees the rest.
	status := app.Run(append([]string{os.Args[0]}, flag.Args()...))
	cancel()

	if status != 0 {
		logger.Error("application exited with error", "status", status)
		os.Exit(status)
	}

	logger.Info("popctld stopped")
}
