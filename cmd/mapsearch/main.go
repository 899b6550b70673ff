package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/plano-labs/mapsearch/internal/config"
	"github.com/plano-labs/mapsearch/internal/db/postgres"
	dbRedis "github.com/plano-labs/mapsearch/internal/db/redis"
	logpkg "github.com/plano-labs/mapsearch/internal/logger"
	availabilityrepo "github.com/plano-labs/mapsearch/internal/repository/availability"
	membershiprepo "github.com/plano-labs/mapsearch/internal/repository/membership"
	"github.com/plano-labs/mapsearch/internal/repository/profilecache"
	spatialrepo "github.com/plano-labs/mapsearch/internal/repository/spatial"
	"github.com/plano-labs/mapsearch/internal/repository/viewstate"
	"github.com/plano-labs/mapsearch/internal/transport/catalog"
	chiTransport "github.com/plano-labs/mapsearch/internal/transport/chi"
	healthuc "github.com/plano-labs/mapsearch/internal/usecase/health"
	searchuc "github.com/plano-labs/mapsearch/internal/usecase/search"
	"github.com/plano-labs/mapsearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting mapsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
	)

	ctx := context.Background()

	// Spatial backend (PostGIS)
	pg, err := postgres.New(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer pg.Close()
	logger.Info("Connected to postgres")

	// KV store (viewport persistence)
	kv, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create KV store", zap.Error(err))
	}
	defer kv.Close()

	if err := kv.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("KV store not ready", zap.Error(err))
	}
	logger.Info("Connected to KV store")

	// Repositories (domain-native, no adapters)
	spatialRepo := spatialrepo.New(pg.Pool)
	memberRepo := membershiprepo.New(pg.Pool)
	availRepo := availabilityrepo.New(pg.Pool)
	viewports := viewstate.New(kv, time.Duration(cfg.Viewport.TTLDays)*24*time.Hour)
	profiles := profilecache.New(kv, profilecache.DefaultTTL)

	// Long-tail catalog client
	catalogClient := catalog.NewClient(&catalog.Config{
		BaseURL: cfg.Catalog.BaseURL,
		APIKey:  cfg.Catalog.APIKey,
		Region:  cfg.Catalog.Region,
		Timeout: time.Duration(cfg.Catalog.TimeoutSec) * time.Second,
		RPS:     cfg.Catalog.RPS,
		Burst:   cfg.Catalog.Burst,
		Logger:  logger,
	})

	// Use case services
	searchSvc := searchuc.New(spatialRepo, memberRepo, catalogClient, availRepo, logger)
	healthSvc := healthuc.New(pg, kv, catalogClient)

	server := chiTransport.NewServer(
		searchSvc, healthSvc, viewports, profiles,
		time.Duration(cfg.Viewport.DebounceMS)*time.Millisecond, logger,
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
