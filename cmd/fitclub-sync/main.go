// Command fitclub-sync runs the client synchronization layer against a
// fitclub API server and reports cache freshness. It is the headless
// counterpart of the client applications that embed internal/sync.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/fitclub-scheduler/internal/config"
	"github.com/example/fitclub-scheduler/internal/sync"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	transport := sync.NewHTTPTransport(cfg.ServerBaseURL, nil)
	service := sync.NewService(transport, sync.Options{
		Interval: cfg.SyncInterval,
		Logger:   logger,
	})

	if err := service.Start(ctx); err != nil {
		logger.Error("failed to start sync", "error", err)
		os.Exit(1)
	}
	defer service.Stop()

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	logger.Info("sync daemon running", "server", cfg.ServerBaseURL, "interval", cfg.SyncInterval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("sync daemon stopping")
			return
		case <-ticker.C:
			logger.Info("cache status",
				"events", len(service.Events()),
				"trainers", len(service.Trainers()),
				"clients", len(service.Clients()),
				"products", len(service.Products()),
				"last_sync", service.LastSync(),
				"error", service.Err(),
			)
		}
	}
}
