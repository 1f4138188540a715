package main

import (
	"context"
	"fmt"

	"growermarket/internal/config"
	"growermarket/internal/core/settings"
	"growermarket/internal/core/tx"
	"growermarket/internal/demo"
	"growermarket/internal/domain/catalog"
	"growermarket/internal/domain/ledger"
	"growermarket/internal/domain/stockrequest"
	"growermarket/internal/infrastructure/cache"
	"growermarket/internal/infrastructure/http/v1/handlers"
	"growermarket/internal/infrastructure/storage/memory"
	"growermarket/internal/infrastructure/storage/postgres"
	"growermarket/internal/infrastructure/storage/postgres/catalog_repo"
	"growermarket/internal/infrastructure/storage/postgres/ledger_repo"
	"growermarket/internal/infrastructure/storage/postgres/request_repo"
)

// storage bundles the repositories of one backend.
type storage struct {
	catalog   catalog.Repository
	ledger    ledger.Repository
	requests  stockrequest.Repository
	events    stockrequest.EventPublisher
	txManager tx.Manager
	settings  settings.Provider
	health    handlers.Pinger
	close     func()
}

func newPostgresStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL, cfg.DBMaxConns))
	if err != nil {
		return nil, err
	}
	postgres.LogPoolStats(ctx, pool)

	settingsCache := cache.NewSettingsCache(pool.Pool)
	if err := settingsCache.Start(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("start settings cache: %w", err)
	}

	txManager := postgres.NewTxManager(pool)
	return &storage{
		catalog:   catalog_repo.NewCatalogRepo(txManager),
		ledger:    ledger_repo.NewLedgerRepo(txManager),
		requests:  request_repo.NewRequestRepo(txManager),
		events:    postgres.NewOutboxPublisher(txManager),
		txManager: txManager,
		settings:  settings.NewStoreProvider(settingsCache, cfg.StaticSettings()),
		health:    pool,
		close: func() {
			settingsCache.Stop()
			pool.Close()
		},
	}, nil
}

// newMemoryStorage builds the process-local backend preloaded with the demo
// catalog.
func newMemoryStorage(cfg *config.Config) *storage {
	store := memory.New()
	data := demo.Data()
	for _, p := range data.Products {
		store.AddProduct(p)
	}
	for _, u := range data.Units {
		store.AddUnit(u)
	}
	for _, g := range data.Growers {
		store.AddGrower(g)
	}

	return &storage{
		catalog:   memory.NewCatalogRepo(store),
		ledger:    memory.NewLedgerRepo(store),
		requests:  memory.NewRequestRepo(store),
		events:    memory.NewOutbox(store),
		txManager: memory.NewTxManager(store),
		settings:  settings.NewStoreProvider(memory.NewSettingsSource(store), cfg.StaticSettings()),
		close:     func() {},
	}
}
