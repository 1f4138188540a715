package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"growermarket/internal/core/id"
	"growermarket/pkg/logger"
)

// DefaultAlertsTTL bounds how stale a cached alert count may be.
const DefaultAlertsTTL = 20 * time.Second

const (
	pendingKey        = "alerts:pending"
	unviewedKeyPrefix = "alerts:unviewed:"
)

// CounterSource computes alert counts from the system of record.
type CounterSource interface {
	CountPending(ctx context.Context) (int64, error)
	CountUnviewedResponses(ctx context.Context, growerID id.ID) (int64, error)
}

// AlertCounters serves the badge counts shown to admins (pending requests)
// and growers (unacknowledged responses). Counts are cached in Redis for at
// most ttl; any Redis failure falls through to the source.
type AlertCounters struct {
	client *redis.Client
	source CounterSource
	ttl    time.Duration
}

// NewAlertCounters creates the counters. A nil client disables caching.
func NewAlertCounters(client *redis.Client, source CounterSource, ttl time.Duration) *AlertCounters {
	if ttl <= 0 {
		ttl = DefaultAlertsTTL
	}
	return &AlertCounters{client: client, source: source, ttl: ttl}
}

// PendingCount returns the number of requests awaiting a decision.
func (a *AlertCounters) PendingCount(ctx context.Context) (int64, error) {
	return a.cached(ctx, pendingKey, a.source.CountPending)
}

// UnviewedCount returns the grower's unacknowledged responses.
func (a *AlertCounters) UnviewedCount(ctx context.Context, growerID id.ID) (int64, error) {
	return a.cached(ctx, unviewedKeyPrefix+growerID.String(), func(ctx context.Context) (int64, error) {
		return a.source.CountUnviewedResponses(ctx, growerID)
	})
}

// Invalidate drops the global pending count and, when growerID is set, the
// grower's unviewed count. Failures are logged only: entries expire anyway.
func (a *AlertCounters) Invalidate(ctx context.Context, growerID id.ID) {
	if a.client == nil {
		return
	}
	keys := []string{pendingKey}
	if !id.IsNil(growerID) {
		keys = append(keys, unviewedKeyPrefix+growerID.String())
	}
	if err := a.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn(ctx, "alert counters invalidation failed", "error", err)
	}
}

func (a *AlertCounters) cached(ctx context.Context, key string, compute func(context.Context) (int64, error)) (int64, error) {
	if a.client == nil {
		return compute(ctx)
	}

	raw, err := a.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if n, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil {
			return n, nil
		}
		logger.Warn(ctx, "alert counter cache holds invalid value", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		logger.Warn(ctx, "alert counter cache read failed", "key", key, "error", err)
		return compute(ctx)
	}

	n, err := compute(ctx)
	if err != nil {
		return 0, err
	}
	if err := a.client.Set(ctx, key, n, a.ttl).Err(); err != nil {
		logger.Warn(ctx, "alert counter cache write failed", "key", key, "error", err)
	}
	return n, nil
}

// NewRedis creates and validates a go-redis client connection.
func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	// Validate connectivity at startup
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}
