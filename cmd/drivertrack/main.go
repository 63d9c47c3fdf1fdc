package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"drivertrack/internal/cli"
	apphttp "drivertrack/internal/http"
	"drivertrack/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	rt, err := cli.Build(context.Background(), cfg, logger, cli.BuildOptions{Publish: true})
	if err != nil {
		logger.Error("Failed to initialize runtime", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, rt.Service, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ReportCacheTTL:     cfg.ReportCacheTTL,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := rt.Close(); err != nil {
			logger.Error("Runtime close error", log.FieldError, err)
		}
	})

	logger.Info("Starting drivertrack server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
