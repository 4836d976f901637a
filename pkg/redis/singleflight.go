package redis

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// SingleFlightCache is a cache with the singleflight pattern layered on top,
// so concurrent misses for the same key trigger only one loader call.
type SingleFlightCache struct {
	client *Client
	sf     singleflight.Group
}

// NewSingleFlightCache creates a new singleflight cache.
func NewSingleFlightCache(client *Client) *SingleFlightCache {
	return &SingleFlightCache{client: client}
}

// GetBytes retrieves a value from cache. If not found, calls the loader
// function; concurrent calls for the same key share a single loader call.
func (c *SingleFlightCache) GetBytes(ctx context.Context, key string, loader func() ([]byte, error), ttl time.Duration) ([]byte, error) {
	val, err := c.client.Get(ctx, key)
	if err == nil {
		return []byte(val), nil
	}
	if err != ErrKeyNotFound {
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		data, err := loader()
		if err != nil {
			return nil, fmt.Errorf("loader error: %w", err)
		}

		// A failed cache write degrades to a miss next time, not an error.
		if err := c.client.Set(ctx, key, data, ttl); err != nil {
			fmt.Printf("warning: failed to cache data for key %s: %v\n", key, err)
		}

		return data, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// Invalidate removes a key from the cache.
func (c *SingleFlightCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Delete(ctx, key)
}

// Forget tells singleflight to forget a key so the next call runs the loader.
func (c *SingleFlightCache) Forget(key string) {
	c.sf.Forget(key)
}
