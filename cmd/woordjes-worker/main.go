package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"woordjes/internal/amqp"
	"woordjes/internal/cli"
	"woordjes/internal/log"
	"woordjes/internal/services"
	gsheet "woordjes/internal/sheets/google"
	"woordjes/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting woordjes-worker")

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	repo, err := cli.OpenRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	var client *amqp.Client
	if cfg.AMQPURL != "" {
		client, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return fmt.Errorf("connect AMQP: %w", err)
		}
		defer client.Close()
	} else {
		logger.Info("AMQP disabled, relying on the export sweep")
	}

	var exports *worker.ExportWorker
	if cfg.SheetsEnabled() {
		sheetsClient, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			OAuthClientJSON: cfg.GoogleOAuthClientJSON,
			OAuthClientFile: cfg.GoogleOAuthClientFile,
			OAuthTokenJSON:  cfg.GoogleOAuthTokenJSON,
			OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
		}, logger)
		if err != nil {
			return fmt.Errorf("init Google Sheets: %w", err)
		}
		if err := sheetsClient.EnsureHeader(ctx); err != nil {
			// Appends still work without a header row.
			logger.Warn("Could not write sheet header", log.FieldError, err)
		}
		exports = worker.NewExportWorker(repo, sheetsClient, worker.DefaultBatchSize, logger)
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	var events services.EventPublisher
	if client != nil {
		events = client
	}
	medals := services.NewMedalService(repo, repo, events, logger)

	var pending worker.PendingExporter
	if exports != nil {
		pending = exports
	}
	scheduler := worker.NewScheduler(medals, pending, logger)

	// Catch up on anything missed while the worker was down.
	scheduler.AwardMedals(ctx)
	if exports != nil {
		scheduler.ExportPending(ctx)
	}

	if err := scheduler.Start(ctx, cfg.MedalScheduleHour, worker.DefaultExportInterval); err != nil {
		return err
	}
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	if client != nil {
		handlers := amqp.Handlers{}
		if exports != nil {
			handlers = exports.Handlers()
		}
		g.Go(func() error {
			return client.ConsumeWithReconnect(gctx, handlers)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
		return err
	}
	<-done
	logger.Info("Worker shutdown complete")
	return nil
}
