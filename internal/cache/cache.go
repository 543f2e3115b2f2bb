// Package cache wraps the Redis client used for short URL lookups and
// pending click counters. The cache is an optimization, never a source of
// truth: every operation degrades to a miss or a no-op when Redis is
// unavailable, and callers proceed as if the cache were empty.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ilyakochetov/shortener/internal/config"
)

// DefaultTTL is the mapping lifetime used when a record has no expiration.
const DefaultTTL = 7 * 24 * time.Hour

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	const op = "cache.NewClient"

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	return client, nil
}

// Cache provides the url mapping and click counter operations on top of a
// shared Redis client.
type Cache struct {
	client     *redis.Client
	defaultTTL time.Duration
	logger     *slog.Logger
}

func New(client *redis.Client, defaultTTL time.Duration, logger *slog.Logger) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	return &Cache{
		client:     client,
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

func urlKey(shortCode string) string {
	return "url:" + shortCode
}

func clicksKey(shortCode string) string {
	return "clicks:" + shortCode
}

// mappingTTL derives the cache entry lifetime from the record expiration.
// Entries for records without an expiration live for the default TTL; the
// floor of one second keeps already-expired records from receiving an
// unbounded lifetime.
func (c *Cache) mappingTTL(expiresAt *time.Time) time.Duration {
	if expiresAt == nil {
		return c.defaultTTL
	}

	ttl := time.Until(*expiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}

	return ttl
}

// GetURL looks up the original URL for a short code. A Redis failure is
// logged and reported as a miss.
func (c *Cache) GetURL(ctx context.Context, shortCode string) (string, bool) {
	const op = "cache.Cache.GetURL"

	originalURL, err := c.client.Get(ctx, urlKey(shortCode)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("failed to get url mapping", slog.Group(op, slog.Any("err", err)))
		}

		return "", false
	}

	return originalURL, true
}

// SetURL stores the short code mapping with a TTL derived from the record
// expiration. Failures are logged and dropped.
func (c *Cache) SetURL(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time) {
	const op = "cache.Cache.SetURL"

	ttl := c.mappingTTL(expiresAt)

	if err := c.client.Set(ctx, urlKey(shortCode), originalURL, ttl).Err(); err != nil {
		c.logger.Warn("failed to set url mapping", slog.Group(op, slog.Any("err", err)))
	}
}

// Clicks returns the pending (unflushed) click count for a short code.
// An absent counter or a Redis failure reads as zero.
func (c *Cache) Clicks(ctx context.Context, shortCode string) int64 {
	const op = "cache.Cache.Clicks"

	count, err := c.client.Get(ctx, clicksKey(shortCode)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("failed to get click counter", slog.Group(op, slog.Any("err", err)))
		}

		return 0
	}

	return count
}

// IncrClicks atomically increments the pending click counter and returns the
// new value. Unlike the other operations the error is returned: the click
// accounting must know the increment was lost so it skips the flush decision.
func (c *Cache) IncrClicks(ctx context.Context, shortCode string) (int64, error) {
	const op = "cache.Cache.IncrClicks"

	count, err := c.client.Incr(ctx, clicksKey(shortCode)).Result()
	if err != nil {
		c.logger.Warn("failed to increment click counter", slog.Group(op, slog.Any("err", err)))
		return 0, fmt.Errorf("%s: failed to increment click counter: %w", op, err)
	}

	return count, nil
}

// ResetClicks zeroes the pending click counter after a flush. Failures are
// logged and dropped; a lost reset over-counts by at most one batch window.
func (c *Cache) ResetClicks(ctx context.Context, shortCode string) {
	const op = "cache.Cache.ResetClicks"

	if err := c.client.Set(ctx, clicksKey(shortCode), 0, 0).Err(); err != nil {
		c.logger.Warn("failed to reset click counter", slog.Group(op, slog.Any("err", err)))
	}
}
