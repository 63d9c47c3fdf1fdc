package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"drivertrack/internal/amqp"
	"drivertrack/internal/cli"
	"drivertrack/internal/config"
	"drivertrack/internal/log"
	gsheet "drivertrack/internal/sheets/google"
	"drivertrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting drivertrack-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	rt, err := cli.Build(context.Background(), cfg, logger, cli.BuildOptions{})
	if err != nil {
		logger.Error("Failed to initialize runtime", log.FieldError, err)
		os.Exit(1)
	}
	defer rt.Close()

	w, err := newReportWorker(cfg, rt, logger)
	if err != nil {
		logger.Error("Failed to initialize report worker", log.FieldError, err)
		os.Exit(1)
	}
	if !w.Enabled() {
		logger.Warn("No outputs configured (GOOGLE_SPREADSHEET_ID, EXPORT_DIR or sqlite backend), events will be acknowledged without effect")
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Consume(gctx, w.HandleMonthChanged)
	})
	g.Go(func() error {
		return refreshLoop(gctx, w, rt.Engine.Now, cfg.RefreshInterval, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}

func newReportWorker(cfg *config.Config, rt *cli.Runtime, logger *log.Logger) (*worker.ReportWorker, error) {
	opts := []worker.Option{worker.WithLogger(logger)}
	if cfg.GoogleSpreadsheetID != "" {
		sc, err := gsheet.NewFromEnv(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSummarySheetName, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, worker.WithSheets(sc))
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}
	if rt.Backend.Snapshots != nil {
		opts = append(opts, worker.WithSnapshots(rt.Backend.Snapshots))
	}
	if cfg.ExportDir != "" {
		opts = append(opts, worker.WithExportDir(cfg.ExportDir))
	}
	return worker.NewReportWorker(rt.Engine, opts...), nil
}

// refreshLoop rewrites the current year once at start and then every
// interval, catching up on events that were never delivered.
func refreshLoop(ctx context.Context, w *worker.ReportWorker, now func() time.Time, interval time.Duration, logger *log.Logger) error {
	if !w.Enabled() {
		<-ctx.Done()
		return ctx.Err()
	}
	refresh := func() {
		if err := w.RefreshYear(ctx, now().Year()); err != nil && ctx.Err() == nil {
			logger.Error("Periodic refresh failed", log.FieldError, err)
		}
	}
	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			refresh()
		}
	}
}
