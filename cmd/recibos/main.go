package main

import (
	"context"
	"os"
	"time"

	"recibos/internal/backend"
	"recibos/internal/cli"
	apphttp "recibos/internal/http"
	"recibos/internal/log"
	"recibos/internal/middleware/ratelimit"
	"recibos/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	logger.Info("Starting recibos", "backend", cfg.DataBackend, "port", cfg.Port)

	fallback, err := cfg.Thresholds()
	if err != nil {
		logger.Error("Invalid fiscal thresholds", log.FieldError, err)
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg, cfg.DataBackend)

	data := services.NewDataService(res.Backend, services.DataServiceConfig{
		TTL:      cfg.CacheTTL,
		Fallback: fallback,
	})

	opts := apphttp.Options{
		Addr:      ":" + cfg.Port,
		Logger:    logger.WithComponent(log.ComponentHTTP),
		RateLimit: ratelimit.DefaultConfig(),
	}
	// the sqlite mirror is refreshed by the worker
	if r, ok := res.Backend.(backend.RefreshRequester); ok {
		opts.Refresher = r
	}
	srv := apphttp.NewServer(data, opts)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}
	})

	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
