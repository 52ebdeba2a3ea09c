package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/analytics"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/annotators"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/api"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/cache"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/config"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/consensus"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/evolution"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/gateway"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/providers"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/quality"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/router"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage/memory"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage/postgres"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/version"
)

var (
	providersPath = flag.String("providers", "", "Path to a YAML provider overlay file")
	showVersion   = flag.Bool("version", false, "Show version information")
)

func main() {
	// Environment variables may be set directly, a missing .env is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Debug("Could not load .env file")
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}

	if err := run(); err != nil {
		logrus.WithError(err).Fatal("Server exited")
	}
}

func run() error {
	cfg := config.Load()
	if *providersPath != "" {
		if err := config.ApplyProvidersFile(cfg, *providersPath); err != nil {
			return fmt.Errorf("failed to apply providers file: %w", err)
		}
	}

	logger := newLogger(cfg.Logging)
	logger.Info(version.Short())
	gin.SetMode(cfg.Server.Mode)

	ctx := context.Background()

	stores, closeStores := openStores(ctx, cfg, logger)
	defer closeStores()

	store := openCache(cfg, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close cache")
		}
	}()

	registry := providers.NewRegistryFromConfig(cfg.Providers)
	gw := gateway.New(registry, store, cfg.Providers, logger)

	deps := api.Dependencies{
		Router:     router.NewRouter(gw, stores, cfg.Router, logger),
		Consensus:  consensus.NewEngine(gw, cfg.Consensus, providerWeights(cfg.Providers), logger),
		Evolution:  evolution.NewEngine(gw, stores, store, cfg.Evolution, logger),
		Predictor:  quality.NewPredictor(stores, cfg.Quality, logger),
		Annotators: annotators.NewManager(stores, logger),
		Analytics:  analytics.NewService(stores, logger),
		Stores:     stores,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewServer(deps, logger).Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"host": cfg.Server.Host,
			"port": cfg.Server.Port,
		}).Info("Starting ConstitutionalFlow server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-quit:
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("Server shutdown complete")
	return nil
}

// newLogger builds the process logger from the logging configuration.
func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// openStores connects to Postgres and runs migrations, dropping to the
// in-memory stores when the database is unreachable.
func openStores(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*storage.Stores, func()) {
	pool, err := postgres.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Warn("Database unreachable, using in-memory stores")
		return memory.NewStores(), func() {}
	}
	if err := postgres.RunMigrations(ctx, pool, logger); err != nil {
		logger.WithError(err).Warn("Migrations failed, using in-memory stores")
		pool.Close()
		return memory.NewStores(), func() {}
	}
	return postgres.NewStores(pool, logger), pool.Close
}

// openCache connects to Redis, dropping to the in-process cache when it is
// unreachable.
func openCache(cfg *config.Config, logger *logrus.Logger) cache.Cache {
	store, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unreachable, using in-memory cache")
		return cache.NewMemoryCache()
	}
	return store
}

// providerWeights pulls the consensus voting weights from the provider
// configuration. An empty result leaves the engine on its defaults.
func providerWeights(cfg config.ProvidersConfig) map[string]float64 {
	weights := make(map[string]float64, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		if pc.Weight > 0 {
			weights[name] = pc.Weight
		}
	}
	return weights
}
