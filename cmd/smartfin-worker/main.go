package main

import (
	"context"
	"errors"
	"os"
	"time"

	"smartfin/internal/amqp"
	"smartfin/internal/cli"
	"smartfin/internal/log"
	"smartfin/internal/sheets"
	gsheet "smartfin/internal/sheets/google"
	mem "smartfin/internal/sheets/memory"
	"smartfin/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting smartfin-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker", "error_type", log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	var ledger sheets.ActivityWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		ledger = client
		logger.Info("Recording activity to Google Sheets",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
	} else {
		ledger = mem.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, keeping activity in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	activity := worker.NewActivityWorker(ledger, logger)
	consumeCtx, stopConsuming := context.WithCancel(context.Background())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		stopConsuming()
		stats := activity.Stats()
		logger.Info("Worker stopping", "processed", stats.Processed, "failed", stats.Failed)
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
	})

	go func() {
		if err := amqpClient.ConsumeActivity(consumeCtx, activity.HandleActivity); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
