package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"drivertrack/internal/backend"
	"drivertrack/internal/cli"
	"drivertrack/internal/services"
)

// app carries the global flags and the lazily opened runtime. Commands that
// only validate their arguments never touch the back end.
type app struct {
	output   string
	logLevel string

	svc       *services.TrackerService
	snapshots backend.SnapshotStore // nil unless the back end keeps summaries
	rt        *cli.Runtime
}

func (a *app) service(ctx context.Context) (*services.TrackerService, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	cli.LoadEnvFile()
	logger := cli.SetupLoggerTo(a.logLevel, os.Stderr)
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, err
	}
	rt, err := cli.Build(ctx, cfg, logger, cli.BuildOptions{Publish: true})
	if err != nil {
		return nil, err
	}
	a.rt = rt
	a.svc = rt.Service
	a.snapshots = rt.Backend.Snapshots
	return a.svc, nil
}

func (a *app) close() error {
	if a.rt == nil {
		return nil
	}
	return a.rt.Close()
}

// parseInts converts positional arguments, naming the offending one.
func parseInts(args []string, names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		v, err := strconv.Atoi(args[i])
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: must be an integer", name, args[i])
		}
		out[i] = v
	}
	return out, nil
}
