package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache TTLs
const (
	TTLClient       = 10 * time.Minute // client profiles change rarely
	TTLDispatchLock = 5 * time.Minute  // covers the longest retry sequence
	TTLDefault      = 5 * time.Minute
)

// Cache key prefixes
const (
	PrefixClient       = "client:"
	PrefixDispatchLock = "dispatch:"
)

// Service is the Redis cache interface used by the pipeline.
// All operations degrade to no-ops when Redis is unavailable.
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// Client profile cache
	GetClient(ctx context.Context, clientID int64, dest interface{}) error
	SetClient(ctx context.Context, clientID int64, data interface{}) error
	InvalidateClient(ctx context.Context, clientID int64) error

	// Dispatch lock prevents two workers from publishing the same record.
	// AcquireDispatchLock returns false when another holder owns the lock.
	AcquireDispatchLock(ctx context.Context, contentID int64) (bool, error)
	ReleaseDispatchLock(ctx context.Context, contentID int64) error

	IsAvailable() bool
	Ping(ctx context.Context) error
}

type redisCache struct {
	client *redis.Client
}

// NewService creates a cache service backed by the given Redis client.
// A nil client yields a service whose operations are no-ops.
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return fmt.Errorf("redis not available")
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func clientKey(clientID int64) string {
	return PrefixClient + strconv.FormatInt(clientID, 10)
}

func (c *redisCache) GetClient(ctx context.Context, clientID int64, dest interface{}) error {
	return c.Get(ctx, clientKey(clientID), dest)
}

func (c *redisCache) SetClient(ctx context.Context, clientID int64, data interface{}) error {
	return c.Set(ctx, clientKey(clientID), data, TTLClient)
}

func (c *redisCache) InvalidateClient(ctx context.Context, clientID int64) error {
	return c.Delete(ctx, clientKey(clientID))
}

func dispatchLockKey(contentID int64) string {
	return PrefixDispatchLock + strconv.FormatInt(contentID, 10)
}

func (c *redisCache) AcquireDispatchLock(ctx context.Context, contentID int64) (bool, error) {
	if c.client == nil {
		// Without Redis the state-machine guard is the only protection.
		return true, nil
	}
	return c.client.SetNX(ctx, dispatchLockKey(contentID), "1", TTLDispatchLock).Result()
}

func (c *redisCache) ReleaseDispatchLock(ctx context.Context, contentID int64) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, dispatchLockKey(contentID)).Err()
}
