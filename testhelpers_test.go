//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/application"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/events"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/geocoding"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/heretest"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/repository"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/routing"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const testTopic = "route.comparison.events"

var (
	leverkusen = route.Coordinate{Lat: 51.0719, Lng: 7.0454}
	solingen   = route.Coordinate{Lat: 51.1831, Lng: 6.8157}
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Redis        *redis.Client
	Cleanup      func()
}

// comparisonStack holds wired-up comparison service components.
type comparisonStack struct {
	Service         *application.ComparisonService
	Here            *heretest.Server
	CleanupProducer func()
}

// setupContainers starts PostgreSQL, Kafka and Redis testcontainers.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	// Start PostgreSQL container with log-based wait strategy.
	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_route_compare",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_route_compare sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(&repository.ComparisonLogModel{}))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, testTopic)

	// Start Redis for the geocode cache.
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")

	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)
	redisClient := redis.NewClient(&redis.Options{Addr: net.JoinHostPort(redisHost, redisPort.Port())})
	require.Eventually(t, func() bool {
		return redisClient.Ping(ctx).Err() == nil
	}, 15*time.Second, 500*time.Millisecond, "Redis not ready for connections")

	cleanup := func() {
		_ = redisClient.Close()
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Redis:        redisClient,
		Cleanup:      cleanup,
	}
}

// setupComparisonStack wires the full comparison service against a fake HERE server.
func setupComparisonStack(t *testing.T, infra *testInfra) *comparisonStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	here := heretest.NewServer()
	t.Cleanup(here.Close)
	here.AddPlace("Leverkusen", leverkusen)
	here.AddPlace("Solingen", solingen)

	geocoder, err := geocoding.NewHereGeocoder(geocoding.Config{BaseURL: here.URL, APIKey: "test-key"}, logger)
	require.NoError(t, err)
	resolver := geocoding.NewCachedResolver(geocoder, geocoding.NewRedisCache(infra.Redis, time.Hour), logger)

	router, err := routing.NewHereRouter(routing.Config{BaseURL: here.URL, APIKey: "test-key"}, logger)
	require.NoError(t, err)

	catalog, err := route.DefaultCatalog(route.TransportModeCar, route.Coordinate{Lat: 51.0965, Lng: 6.9342})
	require.NoError(t, err)

	logRepo := repository.NewGormComparisonLogRepository(infra.DB)
	producer := events.NewProducer(infra.KafkaBrokers, logger)

	svc := application.NewComparisonService(resolver, router, catalog, logRepo, producer, application.Options{
		EventTopic: testTopic,
	}, logger)

	return &comparisonStack{
		Service:         svc,
		Here:            here,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) events.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	found := make(chan events.CloudEvent, 1)
	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	consumer := events.NewComparisonEventConsumer(brokers, groupID, topic,
		func(_ context.Context, e events.CloudEvent) error {
			if e.Type == expectedType {
				select {
				case found <- e:
				default:
				}
				cancel()
			}
			return nil
		}, zap.NewNop())
	defer func() { _ = consumer.Close() }()

	go func() { _ = consumer.Start(ctx) }()

	select {
	case e := <-found:
		return e
	case <-ctx.Done():
		select {
		case e := <-found:
			return e
		default:
		}
		t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
		return events.CloudEvent{}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
