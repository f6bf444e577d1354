// Encounter tracker - watches the game window, records wild encounters and
// serves the query API
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/encounter-tracker/internal/audio"
	"github.com/GriffinCanCode/encounter-tracker/internal/config"
	"github.com/GriffinCanCode/encounter-tracker/internal/diag"
	"github.com/GriffinCanCode/encounter-tracker/internal/encounter"
	"github.com/GriffinCanCode/encounter-tracker/internal/events"
	"github.com/GriffinCanCode/encounter-tracker/internal/grpcclient"
	"github.com/GriffinCanCode/encounter-tracker/internal/ocr"
	"github.com/GriffinCanCode/encounter-tracker/internal/ocr/tesseract"
	"github.com/GriffinCanCode/encounter-tracker/internal/orchestrator"
	"github.com/GriffinCanCode/encounter-tracker/internal/resilience"
	"github.com/GriffinCanCode/encounter-tracker/internal/screen"
	"github.com/GriffinCanCode/encounter-tracker/internal/server"
	"github.com/GriffinCanCode/encounter-tracker/internal/species"
	"github.com/GriffinCanCode/encounter-tracker/internal/store"
	"github.com/GriffinCanCode/encounter-tracker/internal/uistate"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := config.Load()

	mode, err := diag.ParseMode(cfg.DebugMode)
	if err != nil {
		fatal("invalid debug mode", err)
	}
	session := diag.NewSession(cfg.DebugDir, mode)

	// Mirror logs into the session log when the mode asks for it
	if mode.Logging() {
		logFile, err := session.OpenLog()
		if err != nil {
			fatal("failed to open session log", err)
		}
		defer logFile.Close()
		out := io.MultiWriter(os.Stdout, logFile)
		slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: mode.LogLevel()})))
	}
	slog.Info("session started", "session", session.ID, "debug_mode", mode.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dict, err := species.Load(cfg.SpeciesFile)
	if err != nil {
		fatal("failed to load species dictionary", err)
	}

	st, err := store.Open(cfg.StoreDriver, cfg.StoreDSN, store.Options{
		Retry:      resilience.FixedRetryConfig(cfg.StoreMaxAttempts, cfg.StoreRetryDelay),
		DryRun:     mode.DryRun(),
		LogQueries: mode.Verbose(),
		ExportDir:  cfg.ExportDir,
	})
	if err != nil {
		fatal("failed to open store", err)
	}
	defer func() { _ = st.Close() }()

	if err := st.Setup(ctx, dict.Entries()); err != nil {
		fatal("failed to set up store", err)
	}

	engine, closeEngine, err := newEngine(cfg)
	if err != nil {
		fatal("failed to start ocr engine", err)
	}
	defer closeEngine()

	var locator screen.Locator
	if cfg.WindowTitle != "" {
		locator = screen.NewWindowLocator(cfg.WindowTitle)
	}
	capturer := screen.NewDisplayCapturer(cfg.CaptureDisplay, locator)

	var detector *screen.ChangeDetector
	if cfg.FrameDedup {
		detector = screen.NewChangeDetector(screen.DefaultMaxHashDistance)
	}

	bus := events.NewBus()
	defer bus.Close()

	mgr := orchestrator.New(
		st,
		uistate.NewFile(cfg.StateFile, resilience.DefaultRetryConfig()),
		bus,
		orchestrator.NewPipeline(capturer, engine, session, detector),
		encounter.NewExtractor(dict, cfg.MatchCutoff),
		orchestrator.SchedulerConfig{
			PacingDelay: cfg.PacingDelay,
			MaxAttempts: cfg.MaxScanAttempts,
			Verbose:     mode.Verbose(),
		},
	)
	if err := mgr.Init(ctx); err != nil {
		fatal("failed to select a hunt", err)
	}

	startSinks(ctx, cfg, bus)

	srv := server.New(st, mgr, bus)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("tracker server starting", "http", cfg.HTTPAddr, "ocr", cfg.OCRBackend, "store", cfg.StoreDriver)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	mgr.Start(ctx)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	mgr.Stop()
	cancel()
	slog.Info("shutdown complete")
}

// newEngine builds the configured OCR backend and its cleanup.
func newEngine(cfg *config.Config) (ocr.Engine, func(), error) {
	switch cfg.OCRBackend {
	case "remote":
		client, err := grpcclient.New(cfg.OCRAddr)
		if err != nil {
			return nil, nil, err
		}
		return ocr.NewRemoteEngine(client), func() { _ = client.Close() }, nil
	default:
		engine, err := tesseract.New(cfg.OCRLanguage)
		if err != nil {
			return nil, nil, err
		}
		return engine, func() { _ = engine.Close() }, nil
	}
}

// startSinks attaches the optional event consumers. Each runs until ctx is
// cancelled or the bus closes.
func startSinks(ctx context.Context, cfg *config.Config, bus *events.Bus) {
	if cfg.RedisURL != "" {
		sink, err := events.NewRedisSink(ctx, cfg.RedisURL, "")
		if err != nil {
			slog.Warn("redis event sink disabled", "error", err)
		} else {
			ch, _ := bus.Subscribe(orchestrator.EventBuffer)
			go func() {
				defer sink.Close()
				sink.Run(ctx, ch)
			}()
		}
	}

	if cfg.ShinyAlert {
		alert, err := audio.NewShinyAlert(audio.DefaultTone())
		if err != nil {
			slog.Warn("shiny alert disabled", "error", err)
		} else {
			ch, _ := bus.Subscribe(orchestrator.EventBuffer)
			go func() {
				defer alert.Close()
				alert.Run(ctx, ch)
			}()
		}
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
