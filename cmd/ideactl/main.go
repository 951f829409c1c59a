// Package main provides the entry point for ideactl, the idea board command-line client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ideaboard/cmd/ideactl/commands"
	"ideaboard/internal/config"
	"ideaboard/internal/observability"
	"ideaboard/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg.OpenTelemetry.ServiceVersion = version.Version

	// Setup observability (tracing/metrics/logging)
	providers, err := observability.SetupObservability(&cfg.OpenTelemetry, "ideactl", observability.ParseLevel(cfg.LogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		return 1
	}
	logger := providers.Logger

	app := commands.NewApp(cfg, logger)

	// Defer cleanup
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Close(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "Error shutting down services", map[string]interface{}{"error": err.Error()})
		}
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "Error shutting down telemetry providers", map[string]interface{}{"error": err.Error()})
		}
	}()

	if err := commands.Execute(ctx, app, nil); err != nil {
		return 1
	}
	return 0
}
