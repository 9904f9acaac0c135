package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chitbook/internal/amqp"
	"chitbook/internal/config"
	applog "chitbook/internal/log"
	"chitbook/internal/storage"
	"chitbook/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting chitbook-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Messages are optional, the periodic sweep recomputes everything the
	// broker would have told us about.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRecomputeQueue, cfg.AMQPReportQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on periodic sweeps only", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recomputeWorker := worker.NewRecomputeWorker(repo, cfg.SweepBatchSize)

	if err := recomputeWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup recompute check failed", "error", err)
		// Don't exit - continue with normal operation
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeLoanRecompute(ctx, func(msg *amqp.LoanRecomputeMessage) error {
				return recomputeWorker.HandleRecomputeMessage(ctx, msg)
			})
			if err != nil && err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
				cancel()
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := recomputeWorker.SweepOpenLoans(ctx); err != nil {
					logger.Error("Periodic loan sweep failed", "error", err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Worker shutdown complete")
}
