// Package main runs the one-off ledger reconciliation: it removes duplicate
// (grower, unit) price records left by older writers, keeping the most
// recently created row of each group. Run it before creating the
// uq_grower_prices_pair index on a legacy database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"growermarket/internal/config"
	appctx "growermarket/internal/core/context"
	"growermarket/internal/domain/reconcile"
	"growermarket/internal/infrastructure/storage/postgres"
	"growermarket/internal/infrastructure/storage/postgres/ledger_repo"
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
		Service:     "growermarket-reconcile",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log = log.WithComponent("reconcile")

	ctx := logger.WithLogger(context.Background(), log)
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext())

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL, 2))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	audit, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit log", "error", err)
	}

	reconciler := reconcile.NewReconciler(ledger_repo.NewLedgerRepo(txManager), audit, txManager)
	report, err := reconciler.Run(ctx, reconcile.Options{DryRun: cfg.ReconcileDryRun})
	if err != nil {
		log.Fatalw("reconciliation failed", "error", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
}
