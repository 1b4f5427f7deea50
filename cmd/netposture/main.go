package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/netposture/netposture/internal/app"
	"github.com/netposture/netposture/internal/config"
	"github.com/netposture/netposture/internal/logging"
	"github.com/netposture/netposture/internal/telemetry"
)

func main() {
	// load config
	cfg := config.Load()

	// Setup Structured Logging
	logger := logging.Setup(cfg.LogLevel, cfg.LogFile)

	// Initialize Tracing
	shutdownTracer, err := telemetry.InitTracer()
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				slog.Error("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	// Initialize Application
	application, err := app.New(cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	// Root Context with cancellation on Interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch {
	case cfg.Scan:
		if err := application.RunScan(ctx); err != nil {
			slog.Error("Scan failed", "error", err)
			os.Exit(1)
		}
	case cfg.Verify:
		if err := application.RunVerify(ctx); err != nil {
			slog.Error("Verification failed", "error", err)
			os.Exit(1)
		}
	case cfg.Serve:
		slog.Info("netposture starting", "diag_addr", cfg.DiagAddr)
		if err := application.RunServe(ctx); err != nil {
			slog.Error("Diagnostics server error", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Nothing to do: pass -scan, -verify or -serve")
		os.Exit(2)
	}
}
