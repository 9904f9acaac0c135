package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chitbook/internal/amqp"
	"chitbook/internal/config"
	apphttp "chitbook/internal/http"
	applog "chitbook/internal/log"
	"chitbook/internal/services"
	ports "chitbook/internal/sheets"
	gsheet "chitbook/internal/sheets/google"
	mem "chitbook/internal/sheets/memory"
	"chitbook/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

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

	// AMQP is optional: without it repayment recomputes still run inline
	// and report requests export synchronously.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRecomputeQueue, cfg.AMQPReportQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without async messaging", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	var reportWriter ports.ReportWriter
	switch cfg.ReportBackend {
	case "sheets":
		cli, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		reportWriter = cli
		logger.Info("Initialized Google Sheets report backend")
	default:
		reportWriter = mem.New()
		logger.Info("Initialized memory report backend")
	}

	loanSvc := services.NewLoanService(repo, amqpClient)
	fundSvc := services.NewChitFundService(repo)

	var publisher services.ReportPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	reportSvc := services.NewReportService(repo, reportWriter, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, loanSvc, fundSvc, reportSvc)
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting chitbook server", "port", cfg.Port, "report_backend", cfg.ReportBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
