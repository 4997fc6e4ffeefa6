package main

import (
	"context"
	"errors"
	"os"
	_ "time/tzdata"

	"stockroom/internal/amqp"
	"stockroom/internal/cli"
	applog "stockroom/internal/log"
	gsheet "stockroom/internal/sheets/google"
	"stockroom/internal/storage"
	"stockroom/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(applog.ComponentWorker)
	logger.Info("Starting stockroom-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed", applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}
	loc, _ := cfg.Location()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath, storage.WithLocation(loc))
	defer repo.Close()

	exporter, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		Location:           loc,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(repo, exporter, cfg.SyncBatchSize, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumeErr := make(chan error, 1)
	go func() {
		if err := amqpClient.ConsumeTransactionRecorded(ctx, exportWorker.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
			consumeErr <- err
			cancel()
		}
	}()

	// The periodic pass picks up rows whose message was lost.
	exportWorker.Run(ctx, cfg.SyncInterval)

	select {
	case err := <-consumeErr:
		logger.Error("Message consumption failed", applog.FieldError, err)
		amqpClient.Close()
		repo.Close()
		os.Exit(1)
	case <-done:
	}
	logger.Info("Worker shutdown complete")
}
