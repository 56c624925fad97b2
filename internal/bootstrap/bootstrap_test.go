package bootstrap

import (
	"context"
	"testing"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/config"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/heretest"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewEngine_MissingCredential(t *testing.T) {
	cfg := config.FromViper(viper.New())
	cfg.Here.APIKey = ""

	_, err := NewEngine(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, route.ErrMissingCredential)
}

func TestNewEngine_ResolvesThroughMemoryCache(t *testing.T) {
	here := heretest.NewServer()
	defer here.Close()
	here.AddPlace("Solingen", route.Coordinate{Lat: 51.1831, Lng: 6.8157})

	cfg := config.FromViper(viper.New())
	cfg.Here.APIKey = "test-key"
	cfg.Here.GeocodeURL = here.URL
	cfg.Here.RoutingURL = here.URL

	engine, err := NewEngine(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = engine.Close() }()

	assert.Equal(t, 4, engine.Catalog.Len())
	for i := 0; i < 2; i++ {
		c, err := engine.Resolver.Resolve(context.Background(), "Solingen")
		require.NoError(t, err)
		assert.Equal(t, 51.1831, c.Lat)
	}
	assert.Equal(t, int64(1), here.GeocodeCalls())
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
