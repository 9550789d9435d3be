// Package cache shares the latest funnel view between replicas through Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/funnel-monitor/internal/service/dashboard"
)

const viewKey = "funnel:view"

// ViewCache stores the latest dashboard view as JSON under one key.
type ViewCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewViewCache creates a cache whose key is prefixed with prefix.
func NewViewCache(client *redis.Client, prefix string, ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ViewCache{client: client, key: prefix + viewKey, ttl: ttl}
}

// Key returns the Redis key holding the view.
func (c *ViewCache) Key() string { return c.key }

// GetView returns the cached view. A miss is not an error.
func (c *ViewCache) GetView(ctx context.Context) (*dashboard.View, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached view: %w", err)
	}

	var v dashboard.View
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, fmt.Errorf("decode cached view: %w", err)
	}
	return &v, true, nil
}

// SetView replaces the cached view.
func (c *ViewCache) SetView(ctx context.Context, v *dashboard.View) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode view: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached view: %w", err)
	}
	return nil
}

// Invalidate drops the cached view.
func (c *ViewCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
