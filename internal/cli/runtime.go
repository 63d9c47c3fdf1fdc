package cli

import (
	"context"
	"errors"
	"fmt"

	"drivertrack/internal/amqp"
	"drivertrack/internal/backend"
	"drivertrack/internal/calendar"
	"drivertrack/internal/config"
	"drivertrack/internal/log"
	"drivertrack/internal/services"
	"drivertrack/internal/tracker"
)

// Runtime is the wired application core shared by the binaries.
type Runtime struct {
	Config    *config.Config
	Logger    *log.Logger
	Backend   *backend.BackendResult
	Engine    *tracker.Engine
	Service   *services.TrackerService
	Publisher *amqp.Client // nil when AMQP is not configured or unreachable
}

// BuildOptions select the optional parts of a Runtime.
type BuildOptions struct {
	// Publish connects to AMQP_URL, when set, and publishes change events.
	Publish bool
	// RequirePublisher fails the build when the broker cannot be reached
	// instead of running without events.
	RequirePublisher bool
}

// Build opens the configured back end and wires the engine and service.
func Build(ctx context.Context, cfg *config.Config, logger *log.Logger, opts BuildOptions) (*Runtime, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	engine := tracker.New(res.Store,
		tracker.WithKey(cfg.StoreKey),
		tracker.WithCalendar(calendar.New(cfg.Locale)),
		tracker.WithLogger(logger))

	rt := &Runtime{Config: cfg, Logger: logger, Backend: res, Engine: engine}

	svcOpts := []services.Option{services.WithLogger(logger)}
	if opts.Publish && cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		switch {
		case err == nil:
			rt.Publisher = client
			svcOpts = append(svcOpts, services.WithPublisher(client))
			logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		case opts.RequirePublisher:
			_ = res.Close()
			return nil, fmt.Errorf("connect AMQP: %w", err)
		default:
			logger.Warn("AMQP unavailable, change events disabled", log.FieldError, err)
		}
	}
	rt.Service = services.NewTrackerService(engine, svcOpts...)

	logger.Info("Runtime initialized",
		log.FieldBackend, bcfg.Type.String(), log.FieldKey, engine.Key(), "locale", engine.Calendar().Locale())
	return rt, nil
}

// Close releases the publisher and the back end.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Service != nil {
		if err := rt.Service.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := rt.Backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close backend: %w", err))
	}
	return errors.Join(errs...)
}
