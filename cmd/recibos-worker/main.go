package main

import (
	"context"
	"os"
	"time"

	"recibos/internal/amqp"
	"recibos/internal/backend"
	"recibos/internal/cli"
	"recibos/internal/config"
	"recibos/internal/log"
	"recibos/internal/scheduler"
	"recibos/internal/source"
	"recibos/internal/storage"
	"recibos/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting recibos-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.SyncSource == config.BackendSQLite {
		logger.Error("Sync source cannot be the mirror itself", log.FieldBackend, cfg.SyncSource)
		os.Exit(1)
	}

	// InitBackend exits on failure, so it runs before anything needs closing
	upstream := cli.InitBackend(context.Background(), logger, cfg, cfg.SyncSource)

	if err := run(logger, cfg, upstream); err != nil {
		if upstream.Cleanup != nil {
			_ = upstream.Cleanup()
		}
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}

// run serves until a shutdown signal. Failures are logged before returning;
// the mirror is closed on every path.
func run(logger *log.Logger, cfg *config.Config, upstream *backend.BackendResult) error {
	opts := source.DecodeOptions{Strict: cfg.StrictDates, Logger: log.Default(log.ComponentSource)}

	mirror, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, opts)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		return err
	}
	defer mirror.Close()

	syncWorker := worker.NewSyncWorker(upstream.Backend, mirror, cfg.SyncConcurrency, opts)

	// Without a broker the mirror is only refreshed on schedule.
	var consumer worker.Consumer
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			return err
		}
		defer amqpClient.Close()
		consumer = amqpClient
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided, refresh requests will not be consumed")
	}

	sched, err := scheduler.New()
	if err != nil {
		logger.Error("Failed to create scheduler", log.FieldError, err)
		return err
	}
	if _, err := scheduler.RegisterSyncJob(sched, cfg.SyncCron, syncWorker.HandleRefresh); err != nil {
		logger.Error("Failed to register sync job", log.FieldError, err, "cron", cfg.SyncCron)
		return err
	}

	processor := worker.NewProcessor(syncWorker, consumer, mirror, worker.DefaultProcessorConfig())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Processor stop failed", log.FieldError, err)
		}
		if err := sched.Stop(); err != nil {
			logger.Error("Scheduler stop failed", log.FieldError, err)
		}
		if upstream.Cleanup != nil {
			_ = upstream.Cleanup()
		}
	})

	// On startup, fill an empty mirror before serving requests
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		// Don't exit - the scheduled sync retries
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start processor", log.FieldError, err)
		return err
	}
	sched.Start()

	cli.WaitForShutdown(ctx, done)
	return nil
}
