package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores resolved coordinates keyed by normalized address.
type Cache interface {
	Get(ctx context.Context, key string) (route.Coordinate, bool, error)
	Set(ctx context.Context, key string, coord route.Coordinate) error
}

// NormalizeKey lowercases the address and collapses whitespace.
func NormalizeKey(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// MemoryCache is a thread-safe in-process TTL cache.
type MemoryCache struct {
	items map[string]cacheItem
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
}

type cacheItem struct {
	coord  route.Coordinate
	expiry time.Time
}

// NewMemoryCache creates a TTL-based in-memory cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		items: make(map[string]cacheItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get retrieves a coordinate if present and not expired.
func (c *MemoryCache) Get(_ context.Context, key string) (route.Coordinate, bool, error) {
	c.mu.RLock()
	item, found := c.items[key]
	c.mu.RUnlock()

	if !found {
		return route.Coordinate{}, false, nil
	}
	now := c.now()
	if !now.After(item.expiry) {
		return item.coord, true, nil
	}

	c.mu.Lock()
	// A Set between the two locks may have refreshed the entry.
	if current, ok := c.items[key]; ok && now.After(current.expiry) {
		delete(c.items, key)
	}
	c.mu.Unlock()
	return route.Coordinate{}, false, nil
}

// Set stores a coordinate for the configured TTL.
func (c *MemoryCache) Set(_ context.Context, key string, coord route.Coordinate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem{coord: coord, expiry: c.now().Add(c.ttl)}
	return nil
}

// Purge removes expired items and returns how many were dropped.
func (c *MemoryCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, v := range c.items {
		if now.After(v.expiry) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Cleanup purges expired items every interval until ctx is done.
func (c *MemoryCache) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}

// RedisCache stores coordinates in Redis as JSON strings.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	timeout   time.Duration
}

// NewRedisCache creates a cache on an existing Redis client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: "geocode:",
		timeout:   2 * time.Second,
	}
}

// Get retrieves a coordinate. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) (route.Coordinate, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	val, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return route.Coordinate{}, false, nil
	}
	if err != nil {
		return route.Coordinate{}, false, err
	}

	var coord route.Coordinate
	if err := json.Unmarshal([]byte(val), &coord); err != nil {
		return route.Coordinate{}, false, err
	}
	return coord, true, nil
}

// Set stores a coordinate with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, coord route.Coordinate) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := json.Marshal(coord)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.keyPrefix+key, data, c.ttl).Err()
}

// CachedResolver consults a cache before delegating to another resolver.
// Only successful resolutions are stored. Cache failures are logged and treated as misses.
type CachedResolver struct {
	next   Resolver
	cache  Cache
	logger *zap.Logger
}

// NewCachedResolver wraps next with cache.
func NewCachedResolver(next Resolver, cache Cache, logger *zap.Logger) *CachedResolver {
	return &CachedResolver{next: next, cache: cache, logger: logger}
}

// Resolve returns a cached coordinate or resolves and stores it.
func (r *CachedResolver) Resolve(ctx context.Context, address string) (route.Coordinate, error) {
	key := NormalizeKey(address)
	if key != "" {
		coord, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			r.logger.Warn("geocode cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return coord, nil
		}
	}

	coord, err := r.next.Resolve(ctx, address)
	if err != nil {
		return route.Coordinate{}, err
	}

	if key != "" {
		if err := r.cache.Set(ctx, key, coord); err != nil {
			r.logger.Warn("geocode cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return coord, nil
}
