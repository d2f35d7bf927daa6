package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terra-clan/certificate-studio/internal/api"
	"github.com/terra-clan/certificate-studio/internal/app"
	"github.com/terra-clan/certificate-studio/internal/catalog"
	"github.com/terra-clan/certificate-studio/internal/cleanup"
	"github.com/terra-clan/certificate-studio/internal/config"
	"github.com/terra-clan/certificate-studio/internal/export"
	"github.com/terra-clan/certificate-studio/internal/health"
	"github.com/terra-clan/certificate-studio/internal/logging"
	"github.com/terra-clan/certificate-studio/internal/render"
	"github.com/terra-clan/certificate-studio/internal/sessions"
	"github.com/terra-clan/certificate-studio/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger, err := logging.New(os.Stdout, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		slog.Error("failed to create logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	slog.Info("starting certificate-studio",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Load data documents. A failure keeps the service up but not ready.
	source, err := catalog.NewSource(cfg.Data.Source, nil)
	if err != nil {
		slog.Error("invalid data source", "source", cfg.Data.Source, "error", err)
		os.Exit(1)
	}
	loader := catalog.NewLoader(source)
	if err := loader.Load(initCtx); err != nil {
		slog.Warn(catalog.StartupMessage(err))
	}

	// Initialize preference store
	backend, err := openBackend(initCtx, cfg)
	if err != nil {
		slog.Error("failed to open preference store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}

	// Prepare the certificate surface
	assets, err := render.LoadAssets(cfg.Data.AssetsDir)
	if err != nil {
		slog.Error("failed to load page artwork", "dir", cfg.Data.AssetsDir, "error", err)
		os.Exit(1)
	}
	surface, err := render.NewSurface(assets)
	if err != nil {
		slog.Error("failed to prepare certificate surface", "error", err)
		os.Exit(1)
	}
	exporter := export.New(surface,
		export.WithScale(cfg.Render.Scale),
		export.WithQuality(cfg.Render.JPEGQuality),
	)

	manager := sessions.NewManager(backend, loader, exporter, sessions.Config{
		IdleTTL:    cfg.Session.IdleTTL,
		AppOptions: []app.Option{app.WithDefaultLanguage(cfg.Data.DefaultLanguage)},
		Logger:     logger,
	})

	// Readiness checks
	registry := health.NewRegistry()
	registry.Register("catalog", loader)
	registry.Register("store", health.CheckerFunc(backend.Ping))

	// Initialize cleanup worker
	cleaner := cleanup.NewCleaner(manager, cfg.Cleanup.Interval)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start cleanup worker
	cleaner.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, api.Deps{
		Data:            loader,
		Sessions:        manager,
		Health:          registry,
		DefaultLanguage: cfg.Data.DefaultLanguage,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := backend.Close(); err != nil {
		slog.Error("preference store close error", "error", err)
	}

	slog.Info("certificate-studio stopped")
}

// openBackend connects the configured preference store
func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Store.Driver {
	case config.StoreMemory, "":
		return storage.NewMemoryBackend(), nil

	case config.StoreRedis:
		backend, err := storage.NewRedisBackend(ctx, storage.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("redis connected successfully", "address", cfg.Redis.Address)
		return backend, nil

	case config.StorePostgres:
		backend, err := storage.NewPostgresBackend(ctx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: cfg.Database.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("running database migrations")
		if err := backend.Migrate(ctx); err != nil {
			backend.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("database connected successfully")
		return backend, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
