package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"classfund/internal/amqp"
	"classfund/internal/backend"
	"classfund/internal/config"
	"classfund/internal/log"
	"classfund/internal/store/cache"
	"classfund/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Component: log.ComponentWorker,
		Handler:   log.DefaultConfig().Handler,
	})
	log.SetDefault(logger)

	logger.Info("Starting classfund-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := backend.New(ctx, backend.Config{
		Type:          backend.Type(cfg.DataBackend),
		DatabaseURL:   cfg.DatabaseURL,
		DataDirectory: cfg.DataDirectory,
	}, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer st.Close()

	mirror, err := cache.Open(cfg.MirrorDBPath)
	if err != nil {
		logger.Error("Failed to open mirror database", log.FieldError, err, "path", cfg.MirrorDBPath)
		os.Exit(1)
	}
	defer mirror.Close()

	syncWorker := worker.NewSyncWorker(st, mirror, cfg.SyncDebounce)

	// Fill an empty or stale mirror before consuming so a fresh deploy
	// has data to fall back on immediately.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx, cfg.MirrorMaxAge); err != nil {
		logger.Error("Startup sync check failed", log.FieldError, err)
		// Continue; the periodic refresh will retry.
	}

	go syncWorker.Run(ctx, cfg.SyncInterval)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			handler := func(msg *amqp.EntityChangeMessage) error {
				return syncWorker.HandleChangeMessage(ctx, msg)
			}
			if err := amqpClient.ConsumeEntityChanges(ctx, handler); err != nil {
				if err != context.Canceled {
					logger.Error("Message consumption failed", log.FieldError, err)
				}
				cancel()
			}
		}()
		logger.Info("Consuming entity change events", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - refreshing on the periodic interval only")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	// Give an in-flight refresh a moment to finish.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
