package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/application"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/bootstrap"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/config"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/database"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/events"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/handler"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/health"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/logger"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/middleware"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "service-route-compare"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName, cfg.LogFields()...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Build resolver, fetcher and catalog
	engine, err := bootstrap.NewEngine(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to build comparison engine", zap.Error(err))
	}
	defer func() { _ = engine.Close() }()

	// Connect to database (optional)
	var db *gorm.DB
	var logRepo route.ComparisonLogRepository
	if cfg.DatabaseEnabled() {
		db, err = database.Connect(cfg.DBConfig, log)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := db.AutoMigrate(&repository.ComparisonLogModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed")
		logRepo = repository.NewGormComparisonLogRepository(db)
	} else {
		log.Info("comparison log disabled: no database host configured")
	}

	// Initialize Kafka producer (optional)
	var producer application.EventProducer
	if cfg.EventsEnabled() {
		kafkaProducer := events.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()
		producer = kafkaProducer
	} else {
		log.Info("comparison events disabled: no kafka brokers configured")
	}

	// Initialize application service
	comparisonService := application.NewComparisonService(
		engine.Resolver,
		engine.Fetcher,
		engine.Catalog,
		logRepo,
		producer,
		application.Options{
			GeocodeTimeout: cfg.Here.GeocodeTimeout,
			RouteTimeout:   cfg.Here.RouteTimeout,
			EventTopic:     cfg.KafkaConfig.Topic,
		},
		log,
	)

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))

	// Register health check routes
	health.NewHandler(db, serviceName).RegisterRoutes(router)

	// Register routes
	handler.NewComparisonHandler(comparisonService).RegisterRoutes(&router.RouterGroup)
	handler.NewLiveHandler(comparisonService, log.Named("live")).RegisterRoutes(&router.RouterGroup)
	handler.NewAdminComparisonHandler(comparisonService).RegisterRoutes(&router.RouterGroup)

	// Create HTTP server. Writes must outlast a full comparison.
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Here.GeocodeTimeout + cfg.Here.RouteTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}
