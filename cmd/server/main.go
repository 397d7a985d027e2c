package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Flare200/natours/pkg/logger"

	"github.com/Flare200/natours/internal/app"
	"github.com/Flare200/natours/internal/auth"
	"github.com/Flare200/natours/internal/config"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize structured logger.
	log := logger.New("natours-api", cfg.LogLevel)
	log.Info("starting natours API",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
	)

	tokenValidator := auth.NewValidator(cfg.AuthTokenSecret)

	// Create the application with all dependencies wired.
	application, err := app.NewApp(cfg, log, tokenValidator.Validate)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Run the application. This blocks until shutdown.
	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("natours API stopped")
}
