package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emberapp/ember-backend/internal/config"
)

// presenceTTL bounds how long a user counts as online after their last
// heartbeat. Presence lives in Redis, not in process memory, so it is
// shared across server instances.
const presenceTTL = 60 * time.Second

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes a Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil // cache miss
	}
	return val, err
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForLikerCount generates the key for a user's cached liker count.
func (c *RedisCache) KeyForLikerCount(userID uint64) string {
	return fmt.Sprintf("likes:count:%d", userID)
}

// InvalidateLikerCount drops the cached liker count after a swipe write.
func (c *RedisCache) InvalidateLikerCount(ctx context.Context, userID uint64) error {
	return c.Del(ctx, c.KeyForLikerCount(userID))
}

// --- presence ---

func presenceKey(userID uint64) string {
	return fmt.Sprintf("presence:user:%d", userID)
}

// TouchPresence marks the user online for the presence TTL window.
// Called on connect and on every heartbeat.
func (c *RedisCache) TouchPresence(ctx context.Context, userID uint64) error {
	return c.Client.Set(ctx, presenceKey(userID), "1", presenceTTL).Err()
}

// ClearPresence removes the online marker on disconnect.
func (c *RedisCache) ClearPresence(ctx context.Context, userID uint64) error {
	return c.Client.Del(ctx, presenceKey(userID)).Err()
}

// IsOnline reports whether the user has a live presence marker.
func (c *RedisCache) IsOnline(ctx context.Context, userID uint64) (bool, error) {
	n, err := c.Client.Exists(ctx, presenceKey(userID)).Result()
	return n > 0, err
}

// --- event fan-out ---

// EventChannel is the pub/sub channel for a user's realtime events.
// Every server instance subscribes to the pattern so events reach the
// instance actually holding the user's socket.
func EventChannel(userID uint64) string {
	return fmt.Sprintf("events:user:%d", userID)
}

// EventChannelPattern matches all per-user event channels.
const EventChannelPattern = "events:user:*"

// PublishEvent fans an event out to whichever instance holds the
// recipient's connection.
func (c *RedisCache) PublishEvent(ctx context.Context, userID uint64, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return c.Client.Publish(ctx, EventChannel(userID), payload).Err()
}

// PSubscribeEvents subscribes to all per-user event channels.
func (c *RedisCache) PSubscribeEvents(ctx context.Context) *redis.PubSub {
	return c.Client.PSubscribe(ctx, EventChannelPattern)
}
