// Package main is the entry point for the growermarket background worker.
// It relays stock request notifications from sys_outbox to the broker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"growermarket/internal/config"
	appctx "growermarket/internal/core/context"
	"growermarket/internal/infrastructure/messaging"
	"growermarket/internal/infrastructure/storage/postgres"
	"growermarket/pkg/logger"
)

// publishedRetention is how long published outbox rows are kept.
const publishedRetention = 7 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		Service:     "growermarket-worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log = log.WithComponent("worker")

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting growermarket worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL, 5))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	publisher, err := messaging.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		log.Fatalw("failed to connect to broker", "error", err)
	}
	defer publisher.Close()

	relay := postgres.NewOutboxRelay(postgres.NewTxManager(pool), cfg.OutboxBatchSize, publisher)
	worker := &Worker{relay: relay, pool: pool, interval: cfg.OutboxPollInterval, log: log}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker polls the outbox and performs periodic maintenance.
type Worker struct {
	relay    *postgres.OutboxRelay
	pool     *postgres.Pool
	interval time.Duration
	log      *logger.Logger
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w.interval <= 0 {
		w.interval = 2 * time.Second
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(time.Hour)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext())
	n, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		w.log.WithContext(ctx).Errorw("outbox batch failed", "error", err)
		return
	}
	if n > 0 {
		w.log.WithContext(ctx).Debugw("processed outbox batch", "count", n)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext())
	if moved, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.WithContext(ctx).Errorw("move failed outbox messages", "error", err)
	} else if moved > 0 {
		w.log.WithContext(ctx).Warnw("moved failed outbox messages to DLQ", "count", moved)
	}

	if purged, err := w.relay.PurgePublished(ctx, publishedRetention); err != nil {
		w.log.WithContext(ctx).Errorw("purge published outbox messages", "error", err)
	} else if purged > 0 {
		w.log.WithContext(ctx).Infow("purged published outbox messages", "count", purged)
	}

	postgres.LogPoolStats(ctx, w.pool)
}
