// Package bootstrap builds the comparison engine from configuration for both entry points.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/config"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/geocoding"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/routing"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Engine holds the collaborators of a ComparisonService.
type Engine struct {
	Resolver geocoding.Resolver
	Fetcher  routing.Fetcher
	Catalog  *route.Catalog
	Redis    *redis.Client
}

// Close releases the Redis connection when one was opened.
func (e *Engine) Close() error {
	if e.Redis != nil {
		return e.Redis.Close()
	}
	return nil
}

// NewEngine validates cfg and builds the resolver, fetcher and catalog.
// The resolver is wrapped in a Redis cache when REDIS_URL is set, else an in-memory cache.
func NewEngine(ctx context.Context, cfg *config.ServiceConfig, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	catalog, err := route.DefaultCatalog(cfg.Catalog.TransportMode, cfg.Catalog.Via)
	if err != nil {
		return nil, fmt.Errorf("failed to build variant catalog: %w", err)
	}

	geocoder, err := geocoding.NewHereGeocoder(geocoding.Config{
		BaseURL:        cfg.Here.GeocodeURL,
		APIKey:         cfg.Here.APIKey,
		Timeout:        cfg.Here.GeocodeTimeout,
		RequestsPerSec: cfg.Here.GeocodeRPS,
	}, logger.Named("geocoder"))
	if err != nil {
		return nil, err
	}

	router, err := routing.NewHereRouter(routing.Config{
		BaseURL: cfg.Here.RoutingURL,
		APIKey:  cfg.Here.APIKey,
		Timeout: cfg.Here.RouteTimeout,
	}, logger.Named("router"))
	if err != nil {
		return nil, err
	}

	engine := &Engine{Fetcher: router, Catalog: catalog}

	var cache geocoding.Cache
	if cfg.Cache.RedisURL != "" {
		client, err := NewRedisClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		engine.Redis = client
		cache = geocoding.NewRedisCache(client, cfg.Cache.TTL)
		logger.Info("geocode cache backed by redis")
	} else {
		memory := geocoding.NewMemoryCache(cfg.Cache.TTL)
		if cfg.Cache.PurgeInterval > 0 {
			go memory.Cleanup(ctx, cfg.Cache.PurgeInterval)
		}
		cache = memory
	}
	engine.Resolver = geocoding.NewCachedResolver(geocoder, cache, logger.Named("geocode-cache"))

	return engine, nil
}

// NewRedisClient parses url and verifies the server responds.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
