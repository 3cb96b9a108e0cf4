// Package cache is an optional Redis read-through cache for availability
// responses. All methods are nil-safe: with no Redis configured the engine
// computes every view from the store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Modes partition cached availability views by how the caller sees them.
const (
	ModePublic = "public"
	ModeAdmin  = "admin"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New wraps a Redis client; client may be nil to disable caching.
func New(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func availabilityKey(date, mode string) string {
	return fmt.Sprintf("availability:%s:%s", date, mode)
}

// GetAvailability reads a cached view into out; a miss, an unreadable entry
// or a disabled cache all report false.
func (c *Cache) GetAvailability(ctx context.Context, date, mode string, out any) bool {
	if !c.enabled() {
		return false
	}
	val, err := c.client.Get(ctx, availabilityKey(date, mode)).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

// SetAvailability stores a view. Cache failures are logged, never surfaced.
func (c *Cache) SetAvailability(ctx context.Context, date, mode string, val any) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, availabilityKey(date, mode), data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("date", date).Msg("cache write failed")
	}
}

// InvalidateDate drops every cached view of a date. Called after any
// mutation touching that date's reservations.
func (c *Cache) InvalidateDate(ctx context.Context, date string) {
	if !c.enabled() {
		return
	}
	keys := []string{
		availabilityKey(date, ModePublic),
		availabilityKey(date, ModeAdmin),
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Str("date", date).Msg("cache invalidation failed")
	}
}

// Ping reports whether Redis is reachable; used by the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
