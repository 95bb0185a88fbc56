package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"terranet/config"
	"terranet/gateway/middleware"
	"terranet/gateway/server"
	"terranet/observability/logging"
	"terranet/observability/otel"
	"terranet/orders"
)

const serviceName = "onboardd"

func main() {
	configPath := flag.String("config", "onboardd.yaml", "path to the service configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup(serviceName, "").Error("load config", "err", err)
		os.Exit(1)
	}
	logger := logging.Setup(serviceName, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName: serviceName,
			Environment: cfg.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     cfg.Telemetry.Headers,
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
		})
		if err != nil {
			logger.Error("init telemetry", "err", err)
			os.Exit(1)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("telemetry shutdown", "err", err)
			}
		}()
	}

	db, err := orders.Open(cfg.DatabaseDSN, cfg.PostgresDSN())
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	store, err := orders.NewStore(db, cfg.DataDir)
	if err != nil {
		logger.Error("init order store", "err", err)
		os.Exit(1)
	}

	srv := server.New(server.Config{
		Store:    store,
		Schedule: &cfg.Pricing,
		Logger:   logger,
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowCredentials: cfg.CORS.AllowCredentials,
		},
		RateLimits: map[string]middleware.RateLimit{
			"quotes":   {RequestsPerMinute: cfg.RateLimits.Quotes.RequestsPerMinute, Burst: cfg.RateLimits.Quotes.Burst},
			"checkout": {RequestsPerMinute: cfg.RateLimits.Checkout.RequestsPerMinute, Burst: cfg.RateLimits.Checkout.Burst},
		},
		Observability: middleware.ObservabilityConfig{
			ServiceName: serviceName,
			LogRequests: true,
			Enabled:     true,
		},
	})

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("onboarding API listening", "addr", cfg.ListenAddress)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "err", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
}
