// Package cache provides the redis-backed tenant-scoped caches. Each type
// owns one key prefix, mirroring how the stores own one table.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tenantKeyPrefix = "tenant:"
	tenantEntryTTL  = 5 * time.Minute
	// invalidateScanCount bounds how many keys one SCAN page touches.
	invalidateScanCount = 200
)

// TenantCache caches tenant-scoped read results under "tenant:{id}:{key}".
// A tenant switch must call InvalidateTenant for the outgoing tenant before
// any read for the incoming tenant is served, so a stale response can never
// be attributed to the new tenant.
type TenantCache struct {
	client *redis.Client
}

func NewTenantCache(client *redis.Client) *TenantCache {
	return &TenantCache{client: client}
}

func (c *TenantCache) key(orgID int64, key string) string {
	return fmt.Sprintf("%s%d:%s", tenantKeyPrefix, orgID, key)
}

// Get returns the cached payload and whether it was present.
func (c *TenantCache) Get(ctx context.Context, orgID int64, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.key(orgID, key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

func (c *TenantCache) Set(ctx context.Context, orgID int64, key string, payload []byte) error {
	return c.client.Set(ctx, c.key(orgID, key), payload, tenantEntryTTL).Err()
}

// InvalidateTenant removes every cached entry belonging to the organization.
func (c *TenantCache) InvalidateTenant(ctx context.Context, orgID int64) error {
	pattern := fmt.Sprintf("%s%d:*", tenantKeyPrefix, orgID)

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, invalidateScanCount).Result()
		if err != nil {
			return fmt.Errorf("failed to scan tenant cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete tenant cache keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
