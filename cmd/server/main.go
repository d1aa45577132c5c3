package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ordercheck/ordercheck/internal/config"
	"github.com/ordercheck/ordercheck/internal/core"
	"github.com/ordercheck/ordercheck/internal/logging"
	"github.com/ordercheck/ordercheck/internal/schema"
	"github.com/ordercheck/ordercheck/internal/store"
	"github.com/ordercheck/ordercheck/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"storage_root", cfg.Storage.Root,
		"upload_max_file_size", cfg.Upload.MaxFileSize,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Open the artifact store (creates directories and the index DB)
	artifacts, err := store.Open(cfg.Storage.Root, slog.Default())
	if err != nil {
		slog.Error("failed to open artifact store", "error", err)
		os.Exit(1)
	}
	defer artifacts.Close()

	// Load the column schema configuration
	schemas := schema.NewStore(cfg.Storage.SchemaConfigPath, slog.Default())
	reg := schemas.Registry()
	slog.Info("column schema loaded",
		"fields", len(reg.Fields()),
		"required", len(reg.RequiredFields()),
	)

	// Create service and server
	service := core.NewService(cfg, artifacts, schemas)
	server := web.NewServer(service, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
