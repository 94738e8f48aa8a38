package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"scholarops/internal/app"
	"scholarops/internal/platform/config"
	"scholarops/internal/platform/httpserver"
	"scholarops/internal/platform/logger"
)

// main loads configuration, builds the service and keeps the server
// lifecycle small. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logger.New("info", "text").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	srv := httpserver.New(cfg.Server.Addr, application.Router)
	runErr := httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, log)
	if runErr != nil {
		log.Error("server error", "error", runErr)
	}
	if err := application.Close(context.Background()); err != nil {
		log.Error("failed to release resources", "error", err)
	}
	log.Info("server stopped")
	if runErr != nil {
		os.Exit(1)
	}
}
