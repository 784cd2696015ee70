package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/GTDGit/checkout_gateway/internal/models"
)

// AccountRangeCache stores resolved card metadata keyed by the 10 digit
// account range. Full PANs are never used as keys.
type AccountRangeCache interface {
	Get(ctx context.Context, accountRange string) (models.PANInfo, bool, error)
	Set(ctx context.Context, accountRange string, info models.PANInfo) error
}

// kvStore is the subset of RedisClient used by the account range cache.
type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisAccountRangeCache keeps PANInfo in Redis as JSON.
type RedisAccountRangeCache struct {
	redis kvStore
	ttl   time.Duration
}

// NewRedisAccountRangeCache creates a Redis backed cache with the given TTL.
func NewRedisAccountRangeCache(redis kvStore, ttl time.Duration) *RedisAccountRangeCache {
	return &RedisAccountRangeCache{redis: redis, ttl: ttl}
}

func (c *RedisAccountRangeCache) key(accountRange string) string {
	return fmt.Sprintf("account_range:%s", accountRange)
}

// Get returns the cached PANInfo. A miss is (zero, false, nil).
func (c *RedisAccountRangeCache) Get(ctx context.Context, accountRange string) (models.PANInfo, bool, error) {
	raw, err := c.redis.Get(ctx, c.key(accountRange))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.PANInfo{}, false, nil
		}
		return models.PANInfo{}, false, fmt.Errorf("failed to get account range: %w", err)
	}

	var info models.PANInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return models.PANInfo{}, false, fmt.Errorf("failed to unmarshal account range: %w", err)
	}
	return info, true, nil
}

func (c *RedisAccountRangeCache) Set(ctx context.Context, accountRange string, info models.PANInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal account range: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(accountRange), string(data), c.ttl); err != nil {
		return fmt.Errorf("failed to store account range: %w", err)
	}
	return nil
}

// MemoryAccountRangeCache is the in-process cache used when Redis is disabled.
type MemoryAccountRangeCache struct {
	store *gocache.Cache
}

// NewMemoryAccountRangeCache creates a go-cache backed cache; expired entries
// are swept every cleanup interval.
func NewMemoryAccountRangeCache(ttl, cleanup time.Duration) *MemoryAccountRangeCache {
	return &MemoryAccountRangeCache{store: gocache.New(ttl, cleanup)}
}

func (c *MemoryAccountRangeCache) Get(_ context.Context, accountRange string) (models.PANInfo, bool, error) {
	v, ok := c.store.Get(accountRange)
	if !ok {
		return models.PANInfo{}, false, nil
	}
	info, ok := v.(models.PANInfo)
	return info, ok, nil
}

func (c *MemoryAccountRangeCache) Set(_ context.Context, accountRange string, info models.PANInfo) error {
	c.store.SetDefault(accountRange, info)
	return nil
}
