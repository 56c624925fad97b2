package config

import (
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg := FromViper(viper.New())

	assert.Equal(t, ":8090", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "https://geocode.search.hereapi.com/v1", cfg.Here.GeocodeURL)
	assert.Equal(t, "https://router.hereapi.com/v8", cfg.Here.RoutingURL)
	assert.Equal(t, 5*time.Second, cfg.Here.GeocodeTimeout)
	assert.Equal(t, 10*time.Second, cfg.Here.RouteTimeout)
	assert.Equal(t, 5.0, cfg.Here.GeocodeRPS)
	assert.Equal(t, "car", cfg.Catalog.TransportMode)
	assert.Equal(t, route.Coordinate{Lat: 51.0965, Lng: 6.9342}, cfg.Catalog.Via)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, time.Hour, cfg.Cache.PurgeInterval)
	assert.Equal(t, "route.comparison.events", cfg.KafkaConfig.Topic)
	assert.False(t, cfg.DatabaseEnabled())
	assert.False(t, cfg.EventsEnabled())
}

func TestFromViper_Environment(t *testing.T) {
	t.Setenv("ROUTECOMPARE_HERE_API_KEY", " key-123 ")
	t.Setenv("ROUTECOMPARE_ROUTE_TIMEOUT", "3s")
	t.Setenv("ROUTECOMPARE_VIA_LAT", "50.5")
	t.Setenv("ROUTECOMPARE_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ROUTECOMPARE_DB_HOST", "postgres")

	cfg := FromViper(viper.New())

	assert.Equal(t, "key-123", cfg.Here.APIKey)
	assert.Equal(t, 3*time.Second, cfg.Here.RouteTimeout)
	assert.Equal(t, 50.5, cfg.Catalog.Via.Lat)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaConfig.Brokers)
	assert.True(t, cfg.DatabaseEnabled())
	assert.True(t, cfg.EventsEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := FromViper(viper.New())
	assert.ErrorIs(t, cfg.Validate(), route.ErrMissingCredential)

	cfg.Here.APIKey = "k"
	cfg.Catalog.Via = route.Coordinate{Lat: 123, Lng: 0}
	assert.ErrorIs(t, cfg.Validate(), route.ErrInvalidInput)
}

func TestLogFields_NeverIncludeCredential(t *testing.T) {
	cfg := FromViper(viper.New())
	cfg.Here.APIKey = "super-secret"

	core, logs := observer.New(zap.InfoLevel)
	zap.New(core).Info("config", cfg.LogFields()...)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, true, fields["api_key_set"])
	for _, v := range fields {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "super-secret")
		}
	}
}
