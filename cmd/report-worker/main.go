package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"chitbook/internal/amqp"
	"chitbook/internal/config"
	applog "chitbook/internal/log"
	"chitbook/internal/services"
	ports "chitbook/internal/sheets"
	gsheet "chitbook/internal/sheets/google"
	mem "chitbook/internal/sheets/memory"
	"chitbook/internal/storage"
	"chitbook/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting report-worker")

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

	var reportWriter ports.ReportWriter
	switch cfg.ReportBackend {
	case "sheets":
		cli, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		reportWriter = cli
		logger.Info("Google Sheets report backend initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	default:
		reportWriter = mem.New()
		logger.Info("Memory report backend initialized")
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRecomputeQueue, cfg.AMQPReportQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, serving periodic reports only", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	reportSvc := services.NewReportService(repo, reportWriter, nil)
	reportWorker := worker.NewReportWorker(reportSvc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeReportRequests(ctx, func(msg *amqp.ReportRequestMessage) error {
				return reportWorker.HandleReportRequest(ctx, msg)
			})
			if err != nil && err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
				cancel()
			}
		}()
	}

	go reportWorker.RunPeriodic(ctx, cfg.ReportInterval)

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
