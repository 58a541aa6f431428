package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/popctl/internal/audio"
	"github.com/jmylchreest/popctl/internal/daemon"
	"github.com/jmylchreest/popctl/internal/metrics"
	"github.com/jmylchreest/popctl/internal/tui"
)

var demoOpts struct {
	noBus   bool
	noWatch bool
	noSound bool
	logFile string
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the popup bar in the terminal",
	Long: `Run the configured popups in the terminal.

Anchors sit on the top row. Hover them with the mouse, click them, or
move focus with tab to trigger their popups. While the demo runs it can
also be driven over D-Bus, exactly like the GTK bar, and it reloads the
config file when it changes.

Key bindings:
  tab/shift+tab  Move focus between anchors
  enter/space    Click the focused anchor
  esc            Click outside every popup
  ?              Toggle help
  q              Quit`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().BoolVar(&demoOpts.noBus, "no-bus", false, "Do not claim the D-Bus control name")
	demoCmd.Flags().BoolVar(&demoOpts.noWatch, "no-watch", false, "Do not reload the config file on change")
	demoCmd.Flags().BoolVar(&demoOpts.noSound, "no-sound", false, "Do not play audio cues")
	demoCmd.Flags().StringVar(&demoOpts.logFile, "log-file", "", "Write logs to this file while the demo runs")
}

func runDemo(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the TUI, so logs go to a file or nowhere.
	log, closeLog, err := demoLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sounds *audio.Manager
	if !demoOpts.noSound {
		sounds = audio.NewManager(cfg, log)
	}
	services := daemon.NewServices(daemon.Options{
		Config:     cfg,
		ConfigPath: configPath(),
		Logger:     log,
		Audio:      sounds,
		Metrics:    metrics.New(),
		NoBus:      demoOpts.noBus,
		NoWatch:    demoOpts.noWatch,
	})

	host := tui.NewHost(tui.Options{
		Config:        cfg,
		Logger:        log,
		OnStateChange: services.OnStateChange,
		OnOpened:      services.OnOpened,
		OnClosed:      services.OnClosed,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := services.Start(gctx, host.Remote()); err != nil {
			return fmt.Errorf("failed to start services: %w", err)
		}
		<-gctx.Done()
		services.Stop()
		return nil
	})
	g.Go(func() error {
		err := host.Run(gctx)
		// Quitting the TUI ends the demo.
		stop()
		return err
	})
	return g.Wait()
}

// demoLogger returns a logger that stays off the terminal.
func demoLogger() (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if globalOpts.verbose {
		level = slog.LevelDebug
	}
	if demoOpts.logFile == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := os.OpenFile(demoOpts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return log, func() { _ = f.Close() }, nil
}
