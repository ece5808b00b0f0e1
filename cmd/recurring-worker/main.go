package main

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"tally/internal/cli"
	"tally/internal/core"
	"tally/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("recurring-worker", os.Getenv("LOG_LEVEL"))
	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	store, cleanup := cli.InitBackend(context.Background(), logger, cfg)

	recurService := services.NewRecurringService(store, store, cfg.SweepConcurrency)

	scheduler := cron.New()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		// Let a running sweep finish before the store goes away.
		<-scheduler.Stop().Done()
		if err := cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	sweep := func() {
		count, err := recurService.ProcessDueRules(ctx, core.Today())
		if err != nil {
			logger.Error("Recurrence sweep failed", "error", err)
			return
		}
		logger.Info("Recurrence sweep finished", "transactions_created", count)
	}

	logger.Info("Recurrence sweep scheduled",
		"schedule", cfg.ScheduleCron,
		"concurrency", cfg.SweepConcurrency,
		"backend", cfg.DataBackend)

	// Catch up on rules that came due while the worker was down.
	sweep()

	if _, err := scheduler.AddFunc(cfg.ScheduleCron, sweep); err != nil {
		logger.Error("Failed to schedule sweep", "error", err, "schedule", cfg.ScheduleCron)
		os.Exit(1)
	}
	scheduler.Start()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker stopped")
}
