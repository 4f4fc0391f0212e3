package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sodrooome/service-registry/config"
	"github.com/sodrooome/service-registry/internal/api"
	"github.com/sodrooome/service-registry/internal/probe"
	"github.com/sodrooome/service-registry/internal/registry"
	"github.com/sodrooome/service-registry/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg, err := initializeRegistry(cfg, log)
	if err != nil {
		log.Error("Failed to initialize registry", slog.Any("err", err))
		os.Exit(1)
	}

	reg.StartHealthChecks(ctx)
	defer reg.StopHealthChecks()

	srv, err := api.New(cfg.Server.Address, reg)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		reg.StopHealthChecks()
		reg.DeregisterAll()
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting registry server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// initializeRegistry builds the registry from the loaded config and seeds
// it with the configured services.
func initializeRegistry(cfg *config.Config, log *slog.Logger) (*registry.Registry, error) {
	interval, err := time.ParseDuration(cfg.HealthCheck.Interval)
	if err != nil {
		return nil, err
	}

	breakerTimeout, err := time.ParseDuration(cfg.Breaker.Timeout)
	if err != nil {
		return nil, err
	}

	probeTimeout, err := time.ParseDuration(cfg.Probe.Timeout)
	if err != nil {
		return nil, err
	}

	traceLatency, err := time.ParseDuration(cfg.Tracing.SimulatedLatency)
	if err != nil {
		return nil, err
	}

	prober := probe.NewHTTP(probeTimeout, cfg.Probe.RetryMax)

	reg := registry.New(prober, log,
		registry.WithHealthCheckInterval(interval),
		registry.WithBreaker(cfg.Breaker.Threshold, breakerTimeout),
		registry.WithTraceLatency(traceLatency))

	for _, svc := range cfg.Services {
		if err := reg.Register(svc.Name, svc.URL); err != nil {
			log.Error("Failed to register service",
				slog.String("service", svc.Name),
				slog.String("url", svc.URL),
				slog.Any("err", err))
			continue
		}
	}

	return reg, nil
}
