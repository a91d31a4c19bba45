package planet

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"spaceshop-server/internal/shared/redis"
)

const catalogCacheKey = "spaceshop:planets:catalog"

// Cache is a read-through cache for the full planet catalog. A nil
// Redis client turns every operation into a no-op, matching the
// REDIS_ENABLED=false path.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// GetCatalog returns the cached catalog and whether it was present.
// Cache failures degrade to a miss, never to an error.
func (c *Cache) GetCatalog(ctx context.Context) ([]Planet, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	payload, err := c.client.Get(ctx, catalogCacheKey).Bytes()
	if err != nil {
		return nil, false
	}

	var planets []Planet
	if err := json.Unmarshal(payload, &planets); err != nil {
		c.logger.Warn("Discarding undecodable catalog cache entry", "error", err)
		c.Invalidate(ctx)
		return nil, false
	}

	return planets, true
}

func (c *Cache) SetCatalog(ctx context.Context, planets []Planet) {
	if c == nil || c.client == nil {
		return
	}

	payload, err := json.Marshal(planets)
	if err != nil {
		c.logger.Warn("Failed to encode catalog for cache", "error", err)
		return
	}

	if err := c.client.Set(ctx, catalogCacheKey, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to store catalog in cache", "error", err)
	}
}

// Invalidate drops the cached catalog. Called after any mutation that
// changes what the catalog shows, including purchases.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}

	if err := c.client.Del(ctx, catalogCacheKey).Err(); err != nil {
		c.logger.Warn("Failed to invalidate catalog cache", "error", err)
	}
}
