// Package cache keeps the most recent reading in Redis so the monitor API
// can answer without touching PostgreSQL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/DexWatch/internal/models"
	"github.com/redis/go-redis/v9"
)

const latestKey = "dexwatch:reading:latest"

// RedisReadingCache stores the latest reading under a single key.
type RedisReadingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisReadingCache creates a cache whose entries expire after ttl.
// A zero ttl keeps entries forever.
func NewRedisReadingCache(client *redis.Client, ttl time.Duration) *RedisReadingCache {
	return &RedisReadingCache{client: client, ttl: ttl}
}

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Put replaces the cached reading.
func (c *RedisReadingCache) Put(ctx context.Context, r models.StoredReading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("cache: marshal reading: %w", err)
	}
	return c.client.Set(ctx, latestKey, string(data), c.ttl).Err()
}

// Latest returns the cached reading, or models.ErrNotFound when the key is
// absent or expired.
func (c *RedisReadingCache) Latest(ctx context.Context) (models.StoredReading, error) {
	val, err := c.client.Get(ctx, latestKey).Result()
	if errors.Is(err, redis.Nil) {
		return models.StoredReading{}, models.ErrNotFound
	}
	if err != nil {
		return models.StoredReading{}, fmt.Errorf("cache: get latest: %w", err)
	}

	var r models.StoredReading
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return models.StoredReading{}, fmt.Errorf("cache: unmarshal reading: %w", err)
	}
	return r, nil
}
