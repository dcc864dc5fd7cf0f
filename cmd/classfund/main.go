package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"classfund/internal/amqp"
	"classfund/internal/backend"
	"classfund/internal/blob"
	"classfund/internal/config"
	apphttp "classfund/internal/http"
	"classfund/internal/hydrate"
	"classfund/internal/log"
	"classfund/internal/service"
	"classfund/internal/state"
	"classfund/internal/store"
	"classfund/internal/store/cache"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

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

	appState := state.New()
	hydrateState(ctx, cfg, st, appState, logger)

	opts := []service.Option{}

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		opts = append(opts, service.WithPublisher(amqpClient))
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	if cfg.BlobBaseURL != "" {
		opts = append(opts, service.WithAvatarStore(blob.NewClient(cfg.BlobBaseURL, cfg.BlobBucket, cfg.BlobAPIKey)))
		logger.Info("Avatar storage initialized", "bucket", cfg.BlobBucket)
	} else {
		logger.Info("Avatar storage disabled - no BLOB_BASE_URL provided")
	}

	// The server's dashboard caches must drop their entries whenever the
	// service changes the snapshot, so wire the invalidation both ways.
	var srv *apphttp.Server
	opts = append(opts, service.WithInvalidation(func() {
		if srv != nil {
			srv.PurgeCaches()
		}
	}))

	svc := service.New(st, appState, opts...)
	srv = apphttp.NewServer(":"+cfg.Port, svc, appState, logger)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting classfund server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

// hydrateState fills the snapshot from the remote store, falling back to
// the SQLite mirror when the store is unreachable. If both fail the
// server still starts but readiness stays 503 with the hydration error.
func hydrateState(ctx context.Context, cfg *config.Config, st store.Store, appState *state.AppState, logger *log.Logger) {
	bundle, err := hydrate.Fetch(ctx, st)
	if err == nil {
		appState.SetData(bundle)
		appState.MarkHydrated()
		return
	}
	logger.Warn("Hydration from store failed, trying mirror", log.FieldError, err)

	if cfg.MirrorDBPath != "" {
		mirror, mirrorErr := cache.Open(cfg.MirrorDBPath)
		if mirrorErr == nil {
			defer mirror.Close()
			if bundle, mirrorErr = mirror.LoadBundle(ctx); mirrorErr == nil {
				syncedAt, _ := mirror.LastSyncedAt(ctx)
				appState.SetData(bundle)
				appState.MarkHydrated()
				logger.Warn("Serving from mirror until the store recovers",
					"last_synced_at", syncedAt)
				return
			}
		}
		logger.Error("Mirror fallback failed", log.FieldError, mirrorErr)
	}

	appState.SetHydrationError(err)
}
