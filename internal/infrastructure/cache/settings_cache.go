// Package cache provides caching infrastructure: the sys_settings cache kept
// fresh by PostgreSQL LISTEN/NOTIFY and the Redis-backed stores.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"growermarket/internal/core/settings"
	"growermarket/pkg/logger"
)

// SettingsChannel is the NOTIFY channel raised by the sys_settings trigger.
const SettingsChannel = "settings_changed"

// SettingsCache keeps sys_settings in memory and reloads it whenever the
// table changes. It implements settings.Source, so values still resolve at
// call time while the table is read only on change.
type SettingsCache struct {
	pool   *pgxpool.Pool
	mu     sync.RWMutex
	values map[string]string

	// Lifecycle
	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

var _ settings.Source = (*SettingsCache)(nil)

// NewSettingsCache creates a new settings cache.
func NewSettingsCache(pool *pgxpool.Pool) *SettingsCache {
	return &SettingsCache{
		pool:   pool,
		values: make(map[string]string),
	}
}

// Start loads the settings and begins listening for changes.
func (c *SettingsCache) Start(ctx context.Context) error {
	c.lifecycleMu.Lock()
	if c.started {
		c.lifecycleMu.Unlock()
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true
	c.lifecycleMu.Unlock()

	if err := c.load(c.ctx); err != nil {
		c.Stop()
		return fmt.Errorf("load settings: %w", err)
	}

	c.wg.Add(1)
	go c.listenLoop()
	logger.Info(c.ctx, "settings cache started")
	return nil
}

// Stop gracefully stops the listener.
func (c *SettingsCache) Stop() {
	c.lifecycleMu.Lock()
	if !c.started {
		c.lifecycleMu.Unlock()
		return
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	logger.Info(context.Background(), "settings cache stopped")
}

// Lookup implements settings.Source.
func (c *SettingsCache) Lookup(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok, nil
}

// listenLoop holds a dedicated connection on LISTEN and reconnects on failure.
func (c *SettingsCache) listenLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		conn, err := c.pool.Acquire(c.ctx)
		if err != nil {
			logger.Error(c.ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if _, err := conn.Exec(c.ctx, "LISTEN "+SettingsChannel); err != nil {
			logger.Error(c.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}

		// Changes made while we were disconnected would otherwise be missed.
		if err := c.load(c.ctx); err != nil {
			logger.Error(c.ctx, "failed to reload settings", "error", err)
		}

		c.waitForNotifications(conn)
		conn.Release()
	}
}

func (c *SettingsCache) waitForNotifications(conn *pgxpool.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		// Bounded wait so shutdown is noticed
		ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if ctx.Err() == context.DeadlineExceeded {
				continue
			}
			logger.Warn(c.ctx, "settings listener connection lost", "error", err)
			return
		}

		logger.Debug(c.ctx, "settings changed", "key", notification.Payload)
		if err := c.load(c.ctx); err != nil {
			logger.Error(c.ctx, "failed to reload settings", "error", err)
		}
	}
}

func (c *SettingsCache) load(ctx context.Context) error {
	rows, err := c.pool.Query(ctx, `SELECT key, value FROM sys_settings`)
	if err != nil {
		return fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("scan setting: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate settings: %w", err)
	}

	c.replace(values)
	logger.Debug(ctx, "loaded settings", "count", len(values))
	return nil
}

func (c *SettingsCache) replace(values map[string]string) {
	c.mu.Lock()
	c.values = values
	c.mu.Unlock()
}
