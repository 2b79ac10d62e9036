package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/wms-platform/scanwatch-service/internal/api/handlers"
	"github.com/wms-platform/scanwatch-service/internal/application"
	"github.com/wms-platform/scanwatch-service/internal/infrastructure/memory"
	mongoRepo "github.com/wms-platform/scanwatch-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/scanwatch-service/internal/infrastructure/upstream"
	"github.com/wms-platform/scanwatch-service/pkg/events"
	"github.com/wms-platform/scanwatch-service/pkg/kafka"
	"github.com/wms-platform/scanwatch-service/pkg/logging"
	"github.com/wms-platform/scanwatch-service/pkg/metrics"
	"github.com/wms-platform/scanwatch-service/pkg/middleware"
	"github.com/wms-platform/scanwatch-service/pkg/mongodb"
	"github.com/wms-platform/scanwatch-service/pkg/resilience"
	"github.com/wms-platform/scanwatch-service/pkg/tracing"
)

const serviceName = "scanwatch-service"

func main() {
	if err := run(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	config := loadConfig()

	// Setup logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting scanwatch-service API")

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing - don't exit
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	// Initialize MongoDB
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize Kafka producer
	producer := kafka.NewProducer(config.Kafka)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize CloudEvents factory
	eventFactory := events.NewEventFactory(events.SourceScanwatch)
	publisher := application.NewInstrumentedPublisher(producer, m)

	// Circuit breaker around the upstream scan-record API
	breaker := resilience.NewCircuitBreaker(
		resilience.DefaultCircuitBreakerConfig("scan-record-api"),
		logger.Logger,
		func(name string, from, to gobreaker.State) {
			m.SetCircuitBreakerState(name, resilience.StateValue(to))
			if to == gobreaker.StateOpen {
				m.RecordCircuitBreakerTrip(name)
			}
		},
	)

	// Upstream client
	upstreamClient := upstream.NewClient(config.Upstream, breaker, logger, m)

	// Stores and repositories
	sessionStore := memory.NewSessionStore()
	recordRepo := mongoRepo.NewStaleRecordRepository(mongoClient.Database(), logger, m)

	// Application services
	authService := application.NewAuthService(
		sessionStore,
		upstreamClient,
		application.Credentials{
			Username: config.DefaultUsername,
			Password: config.DefaultPassword,
		},
		publisher,
		eventFactory,
		logger,
	)
	recordService := application.NewRecordService(
		upstreamClient,
		sessionStore,
		recordRepo,
		publisher,
		eventFactory,
		logger,
		m,
	)

	// Setup Gin router with middleware
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API routes
	apiV1 := router.Group("/api/v1")
	authGroup := router.Group("/api/auth")

	authHandlers := handlers.NewAuthHandlers(authService, logger)
	authHandlers.RegisterRoutes(apiV1, authGroup)

	protected := apiV1.Group("", handlers.RequireSession(authService, logger))
	recordHandlers := handlers.NewRecordHandlers(recordService, logger)
	recordHandlers.RegisterRoutes(protected)

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // exports walk every upstream page
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-signalCh:
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
	return nil
}

// Config holds application configuration
type Config struct {
	ServerAddr      string
	Upstream        *upstream.Config
	MongoDB         *mongodb.Config
	Kafka           *kafka.Config
	DefaultUsername string
	DefaultPassword string
}

func loadConfig() *Config {
	upstreamTimeout := 30 * time.Second
	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			upstreamTimeout = parsed
		}
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		Upstream: &upstream.Config{
			BaseURL: getEnv("UPSTREAM_API_BASE", "http://localhost:8000"),
			Timeout: upstreamTimeout,
		},
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "scanwatch"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
		DefaultUsername: getEnv("DEFAULT_USERNAME", "ops_viewer"),
		DefaultPassword: getEnv("DEFAULT_PASSWORD", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
