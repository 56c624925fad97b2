package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/database"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/events"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/geocoding"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/routing"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix is prepended to every environment variable the service reads.
const EnvPrefix = "ROUTECOMPARE"

// HereConfig holds the settings for both HERE services.
type HereConfig struct {
	APIKey         string
	GeocodeURL     string
	RoutingURL     string
	GeocodeTimeout time.Duration
	RouteTimeout   time.Duration
	GeocodeRPS     float64
}

// CatalogConfig holds the variant catalog parameters.
type CatalogConfig struct {
	TransportMode string
	Via           route.Coordinate
}

// CacheConfig selects the geocode cache backend. An empty RedisURL means in-memory.
type CacheConfig struct {
	RedisURL      string
	TTL           time.Duration
	PurgeInterval time.Duration
}

// KafkaConfig holds event publishing settings. No brokers means events are off.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// ServiceConfig holds all configuration for the route comparison service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	Here        HereConfig
	Catalog     CatalogConfig
	Cache       CacheConfig
	DBConfig    database.PostgresConfig
	KafkaConfig KafkaConfig
}

// Load reads configuration from ROUTECOMPARE_* environment variables and an optional .env file.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return FromViper(v), nil
}

// FromViper builds the configuration from v after applying the env prefix and defaults.
func FromViper(v *viper.Viper) *ServiceConfig {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return &ServiceConfig{
		Port:   v.GetString("SERVICE_PORT"),
		AppEnv: v.GetString("APP_ENV"),
		Here: HereConfig{
			APIKey:         strings.TrimSpace(v.GetString("HERE_API_KEY")),
			GeocodeURL:     v.GetString("HERE_GEOCODE_URL"),
			RoutingURL:     v.GetString("HERE_ROUTING_URL"),
			GeocodeTimeout: v.GetDuration("GEOCODE_TIMEOUT"),
			RouteTimeout:   v.GetDuration("ROUTE_TIMEOUT"),
			GeocodeRPS:     v.GetFloat64("GEOCODE_RPS"),
		},
		Catalog: CatalogConfig{
			TransportMode: v.GetString("TRANSPORT_MODE"),
			Via: route.Coordinate{
				Lat: v.GetFloat64("VIA_LAT"),
				Lng: v.GetFloat64("VIA_LNG"),
			},
		},
		Cache: CacheConfig{
			RedisURL:      v.GetString("REDIS_URL"),
			TTL:           v.GetDuration("CACHE_TTL"),
			PurgeInterval: v.GetDuration("CACHE_PURGE_INTERVAL"),
		},
		DBConfig: database.PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		KafkaConfig: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
			GroupID: v.GetString("KAFKA_GROUP_ID"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", ":8090")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HERE_GEOCODE_URL", geocoding.DefaultBaseURL)
	v.SetDefault("HERE_ROUTING_URL", routing.DefaultBaseURL)
	v.SetDefault("GEOCODE_TIMEOUT", 5*time.Second)
	v.SetDefault("ROUTE_TIMEOUT", 10*time.Second)
	v.SetDefault("GEOCODE_RPS", 5)
	v.SetDefault("TRANSPORT_MODE", route.TransportModeCar)
	v.SetDefault("VIA_LAT", 51.0965)
	v.SetDefault("VIA_LNG", 6.9342)
	v.SetDefault("CACHE_TTL", 24*time.Hour)
	v.SetDefault("CACHE_PURGE_INTERVAL", time.Hour)
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "route_compare")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("KAFKA_TOPIC", events.DefaultTopic)
	v.SetDefault("KAFKA_GROUP_ID", "route-compare-events")
}

// Validate reports route.ErrMissingCredential when no API key is configured.
func (c *ServiceConfig) Validate() error {
	if c.Here.APIKey == "" {
		return fmt.Errorf("%w: set %s_HERE_API_KEY", route.ErrMissingCredential, EnvPrefix)
	}
	if !c.Catalog.Via.Valid() {
		return fmt.Errorf("%w: via waypoint %s is out of range", route.ErrInvalidInput, c.Catalog.Via)
	}
	return nil
}

// DatabaseEnabled reports whether the comparison log should be persisted.
func (c *ServiceConfig) DatabaseEnabled() bool { return c.DBConfig.Host != "" }

// EventsEnabled reports whether comparison events should be published.
func (c *ServiceConfig) EventsEnabled() bool { return len(c.KafkaConfig.Brokers) > 0 }

// LogFields describes the configuration for the startup log. Secrets are never included.
func (c *ServiceConfig) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("port", c.Port),
		zap.String("env", c.AppEnv),
		zap.Bool("api_key_set", c.Here.APIKey != ""),
		zap.String("geocode_url", c.Here.GeocodeURL),
		zap.String("routing_url", c.Here.RoutingURL),
		zap.Duration("geocode_timeout", c.Here.GeocodeTimeout),
		zap.Duration("route_timeout", c.Here.RouteTimeout),
		zap.String("transport_mode", c.Catalog.TransportMode),
		zap.String("via", c.Catalog.Via.String()),
		zap.Bool("redis_cache", c.Cache.RedisURL != ""),
		zap.Bool("comparison_log", c.DatabaseEnabled()),
		zap.Strings("kafka_brokers", c.KafkaConfig.Brokers),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
