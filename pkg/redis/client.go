// Package redis provides the Redis client wrapper and key conventions used by
// the blendroom service.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis client configuration.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	// Connection pool
	PoolSize     int
	MinIdleConns int

	// Timeouts
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration

	MaxRetries int
}

// Client wraps a Redis client.
type Client struct {
	universal redis.UniversalClient
	config    *Config
}

// ErrKeyNotFound is returned when a key doesn't exist.
var ErrKeyNotFound = fmt.Errorf("key not found")

// NewClient creates a new Redis client and verifies connectivity.
func NewClient(cfg *Config) (*Client, error) {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
		MaxRetries:   cfg.MaxRetries,
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Client{
		universal: rdb,
		config:    cfg,
	}, nil
}

// NewClientFromUniversal wraps an existing UniversalClient. Used by tests
// that back the client with miniredis.
func NewClientFromUniversal(rdb redis.UniversalClient) *Client {
	return &Client{universal: rdb}
}

// Universal returns the underlying UniversalClient for operations not
// wrapped by this package.
func (c *Client) Universal() redis.UniversalClient {
	return c.universal
}

// Get retrieves a value from Redis.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.universal.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return val, nil
}

// Set stores a value in Redis with an optional expiration.
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := c.universal.Set(ctx, key, value, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// SetNX sets a value only if the key does not exist.
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	ok, err := c.universal.SetNX(ctx, key, value, expiration).Result()
	if err != nil {
		return false, fmt.Errorf("failed to setnx: %w", err)
	}
	return ok, nil
}

// Delete deletes one or more keys.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if err := c.universal.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// Exists checks if a key exists.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.universal.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return n > 0, nil
}

// Expire sets an expiration on a key.
func (c *Client) Expire(ctx context.Context, key string, expiration time.Duration) error {
	if err := c.universal.Expire(ctx, key, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set expiration: %w", err)
	}
	return nil
}

// TTL returns the remaining time to live of a key.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := c.universal.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get ttl: %w", err)
	}
	return ttl, nil
}

// SAdd adds one or more members to a set.
func (c *Client) SAdd(ctx context.Context, key string, members ...interface{}) error {
	if err := c.universal.SAdd(ctx, key, members...).Err(); err != nil {
		return fmt.Errorf("failed to sadd: %w", err)
	}
	return nil
}

// SRem removes one or more members from a set.
func (c *Client) SRem(ctx context.Context, key string, members ...interface{}) error {
	if err := c.universal.SRem(ctx, key, members...).Err(); err != nil {
		return fmt.Errorf("failed to srem: %w", err)
	}
	return nil
}

// SMembers retrieves all members of a set.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	val, err := c.universal.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to smembers: %w", err)
	}
	return val, nil
}

// Publish publishes a message to a channel.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) error {
	if err := c.universal.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}
	return nil
}

// Pipeline creates a new pipeline for batching commands.
func (c *Client) Pipeline() redis.Pipeliner {
	return c.universal.Pipeline()
}

// Ping checks if the Redis server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.universal.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *Client) Close() error {
	if err := c.universal.Close(); err != nil {
		return fmt.Errorf("failed to close client: %w", err)
	}
	return nil
}
