package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"anggaran/internal/amqp"
	"anggaran/internal/auth"
	"anggaran/internal/cache"
	"anggaran/internal/cli"
	apphttp "anggaran/internal/http"
	"anggaran/internal/log"
	"anggaran/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	store := cli.OpenBackend(ctx, logger, cfg)
	defer store.Cleanup()

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithFallbackUnit(cfg.ImportFallbackUnit),
	}

	// Events are optional; without a broker the mirror relies on the
	// worker's periodic full export.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			opts = append(opts, services.WithEvents(amqpClient))
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	summaries := cache.NewLRUCache[services.SummaryReport](256, 10*time.Minute)
	cacheManager := cache.NewManager()
	cacheManager.Register(summaries)
	cacheManager.StartCleanup(5 * time.Minute)
	defer cacheManager.Stop()
	opts = append(opts, services.WithSummaryCache(summaries))

	budget := services.NewBudgetService(store.Repository, opts...)

	accounts, err := auth.NewStaticAccounts(cli.Accounts(cfg))
	if err != nil {
		logger.Error("Invalid accounts", log.FieldError, err)
		os.Exit(1)
	}
	if len(cfg.Accounts) == 0 {
		logger.Warn("No ACCOUNTS configured, every login will fail")
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Budget:     budget,
		Accounts:   accounts,
		Tokens:     auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Logger:     logger,
		CacheStats: summaries.Stats,
	})
	if err != nil {
		logger.Error("Failed to configure server", log.FieldError, err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting anggaran server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
