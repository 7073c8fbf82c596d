package main

import (
	"context"
	"errors"
	"os"
	"time"

	"anggaran/internal/amqp"
	"anggaran/internal/backend"
	"anggaran/internal/cli"
	"anggaran/internal/log"
	"anggaran/internal/services"
	"anggaran/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting anggaran-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	store := cli.OpenBackend(ctx, logger, cfg)
	defer store.Cleanup()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	sheetsClient, err := backend.NewFactory(logger).CreateSheets(ctx, bcfg)
	if err != nil {
		logger.Error("Google Sheets mirror unavailable", log.FieldError, err)
		os.Exit(1)
	}

	budget := services.NewBudgetService(store.Repository, services.WithLogger(logger))
	syncWorker := worker.NewSyncWorker(budget, sheetsClient, worker.Config{
		BatchSize:    cfg.SyncBatchSize,
		Interval:     cfg.SyncInterval,
		FullInterval: cfg.FullSyncInterval,
	}, logger)
	if err := syncWorker.Start(ctx); err != nil {
		logger.Error("Failed to start sync worker", log.FieldError, err)
		os.Exit(1)
	}

	// Without a broker the worker still mirrors on its full-export timer.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			if err := amqpClient.ConsumeItemEvents(ctx, syncWorker.HandleItemEvent); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption failed", log.FieldError, err)
				cancel()
			}
		}()
		logger.Info("Consuming item events", "queue", cfg.AMQPQueue)
	} else {
		logger.Warn("AMQP_URL not set, relying on periodic full export", "full_interval", cfg.FullSyncInterval)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := syncWorker.Stop(shutdownCtx); err != nil {
		logger.Error("Sync worker shutdown error", log.FieldError, err)
	}
	stats := syncWorker.Stats()
	logger.Info("Worker stopped", "exports", stats.Exports, "pending", stats.Pending)
}
