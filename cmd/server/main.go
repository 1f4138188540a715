// Package main is the entry point for the growermarket API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"growermarket/internal/config"
	"growermarket/internal/domain/auth"
	"growermarket/internal/domain/commission"
	"growermarket/internal/domain/ledger"
	"growermarket/internal/domain/pricing"
	"growermarket/internal/domain/stockrequest"
	"growermarket/internal/infrastructure/cache"
	v1 "growermarket/internal/infrastructure/http/v1"
	"growermarket/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		Service:     "growermarket-api",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Infow("starting growermarket server", "storage", cfg.StorageDriver)

	// --- Storage ---
	var st *storage
	switch cfg.StorageDriver {
	case "memory":
		st = newMemoryStorage(cfg)
		log.Warn("using in-memory storage; data is lost on restart")
	default:
		st, err = newPostgresStorage(ctx, cfg)
		if err != nil {
			log.Fatalw("failed to initialize postgres storage", "error", err)
		}
	}
	defer st.close()

	// --- Redis (optional) ---
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		log.Info("redis connection established")
	}

	// --- Domain services ---
	ledgerService := ledger.NewService(st.ledger, st.catalog, st.txManager).WithSettings(st.settings)
	aggregator := pricing.NewAggregator(st.ledger, st.catalog)
	commissionService := commission.NewService(st.catalog, st.ledger, st.settings)
	requestService := stockrequest.NewService(st.requests, st.catalog, ledgerService, st.events, st.txManager)

	alerts := cache.NewAlertCounters(redisClient, requestService, cfg.AlertsCacheTTL)
	var idempotency *cache.IdempotencyStore
	if redisClient != nil {
		idempotency = cache.NewIdempotencyStore(redisClient, 0)
	}

	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		JWTValidator: jwtService,
		Ledger:       ledgerService,
		Aggregator:   aggregator,
		Commission:   commissionService,
		StockRequest: requestService,
		Alerts:       alerts,
		Idempotency:  idempotency,
		Health:       st.health,
		StorageName:  cfg.StorageDriver,
		Debug:        cfg.IsDevelopment(),
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
