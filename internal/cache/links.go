// Package cache fronts link resolution with Redis. Everything here is
// best-effort: a miss, a marshalling problem, or an unreachable server only
// costs a database round-trip, never a failed request.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/formlead/survey-engine/internal/models"
)

const keyPrefix = "survey:link:"

// LinkCache caches resolved link payloads by slug. A nil *LinkCache is a
// valid no-op cache, so callers never need to branch on whether Redis is
// configured.
type LinkCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLinkCache connects to Redis and returns a cache with the given entry TTL.
func NewLinkCache(ctx context.Context, address, password string, db int, ttl time.Duration) (*LinkCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &LinkCache{client: client, ttl: ttl}, nil
}

// GetResolved returns the cached payload for a slug, or nil on miss.
func (c *LinkCache) GetResolved(ctx context.Context, slug string) *models.ResolvedLink {
	if c == nil {
		return nil
	}

	data, err := c.client.Get(ctx, keyPrefix+slug).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("link cache read failed", "slug", slug, "error", err)
		}
		return nil
	}

	var resolved models.ResolvedLink
	if err := json.Unmarshal(data, &resolved); err != nil {
		slog.Warn("link cache entry corrupt", "slug", slug, "error", err)
		return nil
	}

	return &resolved
}

// SetResolved stores a resolved payload under the slug.
func (c *LinkCache) SetResolved(ctx context.Context, slug string, resolved *models.ResolvedLink) {
	if c == nil {
		return
	}

	data, err := json.Marshal(resolved)
	if err != nil {
		slog.Warn("link cache marshal failed", "slug", slug, "error", err)
		return
	}

	if err := c.client.Set(ctx, keyPrefix+slug, data, c.ttl).Err(); err != nil {
		slog.Warn("link cache write failed", "slug", slug, "error", err)
	}
}

// Invalidate drops a slug's cache entry. Called when a link is deactivated
// or its expiry changes.
func (c *LinkCache) Invalidate(ctx context.Context, slug string) {
	if c == nil {
		return
	}

	if err := c.client.Del(ctx, keyPrefix+slug).Err(); err != nil {
		slog.Warn("link cache invalidation failed", "slug", slug, "error", err)
	}
}

// HealthCheck verifies Redis connectivity.
func (c *LinkCache) HealthCheck(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *LinkCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
