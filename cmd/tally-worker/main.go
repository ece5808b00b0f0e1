package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tally/internal/amqp"
	"tally/internal/cli"
	"tally/internal/store/sqlite"
	"tally/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("tally-worker", os.Getenv("LOG_LEVEL"))
	logger.Info("Starting tally-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	// The mirror tracks per-row export state, which only the SQLite
	// backend records.
	if cfg.DataBackend != "sqlite" {
		logger.Error("tally-worker requires the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	store, err := sqlite.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(store, cfg.MirrorPath, cfg.ExportBatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Mirror any rows whose events were lost while the worker was down.
	logger.Info("Performing startup mirror check...")
	if err := mirror.StartupCheck(ctx); err != nil {
		logger.Error("Startup mirror check failed", "error", err)
		// Don't exit - continue with normal operation
	}

	go func() {
		if err := amqpClient.Consume(ctx, mirror.HandleEvent); err != nil {
			if err != context.Canceled {
				logger.Error("Event consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Periodic sweep for rows still pending after missed events.
	ticker := time.NewTicker(cfg.ExportInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := mirror.ProcessPendingExports(ctx); err != nil {
					logger.Error("Periodic mirror sweep failed", "error", err)
				}
			}
		}
	}()

	logger.Info("Mirror worker running",
		"mirror_path", cfg.MirrorPath,
		"batch_size", cfg.ExportBatchSize,
		"interval", cfg.ExportInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(2 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
