// Package cache keeps per-user resume list responses in redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "resume_list:"

// ListCache stores opaque encoded list responses per user.
type ListCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewListCache returns a cache whose entries expire after ttl.
func NewListCache(client redis.Cmdable, ttl time.Duration) *ListCache {
	return &ListCache{client: client, ttl: ttl}
}

func key(userID string) string { return keyPrefix + userID }

// Get returns the cached entry. A miss is (nil, false, nil).
func (c *ListCache) Get(ctx context.Context, userID string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get list cache: %w", err)
	}
	return b, true, nil
}

// Set stores data for userID.
func (c *ListCache) Set(ctx context.Context, userID string, data []byte) error {
	if err := c.client.Set(ctx, key(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set list cache: %w", err)
	}
	return nil
}

// Invalidate drops the entry for userID.
func (c *ListCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate list cache: %w", err)
	}
	return nil
}
