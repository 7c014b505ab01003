package main

import (
	"context"
	"log/slog"
	"time"

	"scopeindex/internal/core/app"
	"scopeindex/internal/core/config"
	"scopeindex/internal/shared/observability"
)

type cliRuntime struct {
	cfg           *config.Config
	indexer       *app.Indexer
	server        *observabilityServer
	traceShutdown func(context.Context) error
}

func newRuntime(ctx context.Context, cfg *config.Config) (*cliRuntime, error) {
	rt := &cliRuntime{cfg: cfg}

	if cfg.Telemetry.OTLPEndpoint != "" {
		shutdown, err := observability.SetupTracing(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.Insecure, cfg.Telemetry.SampleRatio)
		if err != nil {
			return nil, err
		}
		rt.traceShutdown = shutdown
	}

	ix, err := app.New(cfg)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.indexer = ix

	if cfg.Telemetry.MetricsAddress != "" {
		rt.server = newObservabilityServer(cfg.Telemetry.MetricsAddress, ix)
		if err := rt.server.Start(); err != nil {
			rt.close()
			return nil, err
		}
	}
	return rt, nil
}

func (rt *cliRuntime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if rt.server != nil {
		if err := rt.server.Stop(ctx); err != nil {
			slog.Warn("observability server shutdown failed", "error", err)
		}
	}
	if rt.indexer != nil {
		if err := rt.indexer.Close(); err != nil {
			slog.Warn("indexer close failed", "error", err)
		}
	}
	if rt.traceShutdown != nil {
		if err := rt.traceShutdown(ctx); err != nil {
			slog.Warn("trace exporter shutdown failed", "error", err)
		}
	}
}
