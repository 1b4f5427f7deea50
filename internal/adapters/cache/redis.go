package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/netposture/netposture/internal/core/domain"
)

const redisKeyPrefix = "netposture:advisory:"

// Redis is an AdvisoryCache backed by a Redis instance, for deployments
// where several scanner processes share one cache. Entries are stored as
// JSON under a key derived from the composite (advisoryID, platform) pair.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the Redis instance at addr and verifies it answers.
func NewRedis(ctx context.Context, addr string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return &Redis{client: client}, nil
}

func redisKey(advisoryID string, platform domain.Platform) string {
	return redisKeyPrefix + advisoryID + ":" + string(platform)
}

// Get returns the entry for the exact composite key, or (nil, nil) on miss.
func (r *Redis) Get(ctx context.Context, advisoryID string, platform domain.Platform) (*domain.AdvisoryCacheEntry, error) {
	data, err := r.client.Get(ctx, redisKey(advisoryID, platform)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis cache lookup: %w", err)
	}

	var entry domain.AdvisoryCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("decode cached entry: %w", err)
	}
	return &entry, nil
}

// Put inserts or replaces the entry under its composite key. SET is already
// last-write-wins, which gives the idempotent-upsert semantics for free.
func (r *Redis) Put(ctx context.Context, entry domain.AdvisoryCacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(entry.AdvisoryID, entry.Platform), data, 0).Err(); err != nil {
		return fmt.Errorf("redis cache upsert: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (r *Redis) Len(ctx context.Context) (int, error) {
	var count int
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis cache scan: %w", err)
	}
	return count, nil
}

// Close releases the client connection pool.
func (r *Redis) Close() error { return r.client.Close() }
