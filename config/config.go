/*
Package config provides configuration management for the job feed sync service.

This package separates configuration concerns from business logic and provides
a centralized way to build the store, lock, fetcher and orchestrator from the
environment.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Nexora-Open-Source/job-feed-sync/cache"
	"github.com/Nexora-Open-Source/job-feed-sync/container"
	"github.com/Nexora-Open-Source/job-feed-sync/feedsync"
	"github.com/Nexora-Open-Source/job-feed-sync/fetcher"
	"github.com/Nexora-Open-Source/job-feed-sync/handlers"
	"github.com/Nexora-Open-Source/job-feed-sync/handlers/health"
	"github.com/Nexora-Open-Source/job-feed-sync/lock"
	"github.com/Nexora-Open-Source/job-feed-sync/monitoring"
	"github.com/Nexora-Open-Source/job-feed-sync/store"
	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Store backends
const (
	BackendDatastore = "datastore"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

// Config holds all application configuration
type Config struct {
	ProjectID    string `validate:"required_if=StoreBackend datastore"`
	StoreBackend string `validate:"oneof=datastore postgres memory"`
	DatabaseURL  string `validate:"required_if=StoreBackend postgres"`
	RedisURL     string
	LogLevel     string `validate:"oneof=trace debug info warn warning error fatal panic"`
	ServerPort   string `validate:"required,numeric"`

	// Credentials for the trigger endpoints. Empty disables the endpoint.
	CronSecret     string
	AdminJWTSecret string

	FeedLockEnabled bool
	FeedLockTTL     time.Duration `validate:"gt=0"`

	FetchConfig FetchConfig
	SyncConfig  SyncConfig
	AsyncConfig AsyncConfig

	TracingSampleRatio float64       `validate:"gte=0,lte=1"`
	AlertInterval      time.Duration `validate:"gte=0"`

	// Rate limiting configuration
	RateLimitRequestsPerMinute float64 `validate:"gt=0"`
	RateLimitBurst             int     `validate:"gt=0"`
	// Enhanced CORS configuration
	CORSConfig CORSConfig
	// Cleanup intervals
	ClientCleanupInterval time.Duration `validate:"gt=0"`
}

// FetchConfig controls feed downloads
type FetchConfig struct {
	Timeout      time.Duration `validate:"gt=0"`
	UserAgent    string        `validate:"required"`
	MaxBodyBytes int64         `validate:"gt=0"`
}

// SyncConfig controls run budgets and the in-process schedule
type SyncConfig struct {
	// RunBudget bounds a whole bulk run. Zero disables the bound.
	RunBudget time.Duration `validate:"gte=0"`
	// Schedule is a cron spec; empty disables the in-process scheduler.
	Schedule          string
	ScheduleFrequency string
	ScheduleTimeout   time.Duration `validate:"gte=0"`
}

// AsyncConfig holds async processor settings
type AsyncConfig struct {
	QueueSize       int           `validate:"gt=0"`
	Backpressure    bool
	RejectThreshold float64       `validate:"gte=0,lte=1"`
	WaitTimeout     time.Duration `validate:"gt=0"`
	JobTTL          time.Duration `validate:"gt=0"`
	RunTimeout      time.Duration `validate:"gte=0"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	// Environment-specific settings
	Environment string
	// Allowed origins based on environment
	DevelopmentOrigins []string
	StagingOrigins     []string
	ProductionOrigins  []string
	// Additional CORS settings
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
	// Dynamic origin validation
	AllowSubdomains bool
	AllowedDomains  []string
}

// Services holds all service dependencies
type Services struct {
	Container *container.Container
	Logger    *logrus.Logger
}

// AppConfig holds both configuration and services
type AppConfig struct {
	Config   *Config
	Services *Services
}

// LoadDotEnv loads a .env file when one exists
func LoadDotEnv(logger *logrus.Logger) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.WithError(err).Warn("Failed to load .env file")
	}
}

// NewConfig creates a new configuration instance from the environment
func NewConfig() *Config {
	environment := getEnv("ENVIRONMENT", "development")

	return &Config{
		ProjectID:    getEnv("PROJECT_ID", ""),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendDatastore)),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisURL:     getEnv("REDIS_URL", ""),
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", "info")),
		ServerPort:   getEnv("SERVER_PORT", "8080"),

		CronSecret:     getEnv("CRON_SECRET", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		FeedLockEnabled: getEnvBool("FEED_LOCK_ENABLED", false),
		FeedLockTTL:     getEnvDuration("FEED_LOCK_TTL", 5*time.Minute),

		FetchConfig: FetchConfig{
			Timeout:      getEnvDuration("FEED_FETCH_TIMEOUT", fetcher.DefaultTimeout),
			UserAgent:    getEnv("FEED_USER_AGENT", fetcher.DefaultUserAgent),
			MaxBodyBytes: int64(getEnvInt("FEED_MAX_BODY_BYTES", int(fetcher.DefaultMaxBodyBytes))),
		},
		SyncConfig: SyncConfig{
			RunBudget:         getEnvDuration("SYNC_RUN_BUDGET", 60*time.Second),
			Schedule:          getEnv("SYNC_SCHEDULE", ""),
			ScheduleFrequency: strings.ToLower(getEnv("SYNC_SCHEDULE_FREQUENCY", "")),
			ScheduleTimeout:   getEnvDuration("SYNC_SCHEDULE_TIMEOUT", 5*time.Minute),
		},
		AsyncConfig: AsyncConfig{
			QueueSize:       getEnvInt("ASYNC_QUEUE_SIZE", 50),
			Backpressure:    getEnvBool("ASYNC_BACKPRESSURE", true),
			RejectThreshold: getEnvFloat("ASYNC_REJECT_THRESHOLD", 0.8),
			WaitTimeout:     getEnvDuration("ASYNC_WAIT_TIMEOUT", 5*time.Second),
			JobTTL:          getEnvDuration("ASYNC_JOB_TTL", cache.DefaultJobStatusTTL),
			RunTimeout:      getEnvDuration("ASYNC_RUN_TIMEOUT", 5*time.Minute),
		},

		TracingSampleRatio: getEnvFloat("TRACING_SAMPLE_RATIO", 1.0),
		AlertInterval:      getEnvDuration("ALERT_EVALUATION_INTERVAL", time.Minute),

		// Rate limiting defaults (10 requests per minute, burst of 5)
		RateLimitRequestsPerMinute: getEnvFloat("RATE_LIMIT_RPM", 10.0),
		RateLimitBurst:             getEnvInt("RATE_LIMIT_BURST", 5),
		CORSConfig: CORSConfig{
			Environment: environment,
			DevelopmentOrigins: getEnvSlice("DEV_CORS_ORIGINS", []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
				"http://localhost:8080",
			}),
			StagingOrigins:    getEnvSlice("STAGING_CORS_ORIGINS", []string{}),
			ProductionOrigins: getEnvSlice("PROD_CORS_ORIGINS", []string{}),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{
				"GET", "POST", "OPTIONS",
			}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{
				"Content-Type", "Authorization", "X-Requested-With",
				"X-Request-ID", "Accept", "Origin",
			}),
			ExposedHeaders: getEnvSlice("CORS_EXPOSED_HEADERS", []string{
				"X-Request-ID",
			}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getEnvInt("CORS_MAX_AGE", 86400), // 24 hours
			AllowSubdomains:  getEnvBool("CORS_ALLOW_SUBDOMAINS", false),
			AllowedDomains:   getEnvSlice("CORS_ALLOWED_DOMAINS", []string{}),
		},
		ClientCleanupInterval: getEnvDuration("CLIENT_CLEANUP_INTERVAL", 1*time.Minute),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.FeedLockEnabled && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when FEED_LOCK_ENABLED is true")
	}
	if c.SyncConfig.ScheduleFrequency != "" {
		if _, ok := types.ParseScheduledFrequency(c.SyncConfig.ScheduleFrequency); !ok {
			return fmt.Errorf("SYNC_SCHEDULE_FREQUENCY must be hourly, daily or weekly, got %q", c.SyncConfig.ScheduleFrequency)
		}
	}
	return nil
}

// ScheduleFrequency returns the validated frequency filter for scheduled runs
func (c *Config) ScheduleFrequency() types.SyncFrequency {
	frequency, _ := types.ParseScheduledFrequency(c.SyncConfig.ScheduleFrequency)
	return frequency
}

// OpenStore connects to the configured store backend
func OpenStore(ctx context.Context, config *Config) (store.Store, error) {
	switch config.StoreBackend {
	case BackendPostgres:
		pg, err := store.OpenPostgres(ctx, config.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("failed to migrate postgres schema: %w", err)
		}
		return pg, nil
	case BackendMemory:
		return store.NewMemoryStore(), nil
	default:
		ds, err := store.OpenDatastore(ctx, config.ProjectID)
		if err != nil {
			return nil, err
		}
		return ds, nil
	}
}

// NewServices creates and initializes all service dependencies using DI container
func NewServices(ctx context.Context, config *Config, logger *logrus.Logger) (services *Services, err error) {
	diContainer := container.NewContainer()
	defer func() {
		if err != nil {
			diContainer.Close()
		}
	}()

	st, err := OpenStore(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", config.StoreBackend, err)
	}
	diContainer.OnClose(container.ServiceStore, st.Close)
	logger.WithField("store_backend", config.StoreBackend).Info("Store initialized successfully")

	var redisClient *redis.Client
	if config.RedisURL != "" {
		redisClient, err = lock.NewRedisClient(ctx, config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		diContainer.OnClose("redis", redisClient.Close)
		logger.Info("Redis client initialized successfully")
	}

	alerts := monitoring.NewAlertManager(logger, config.AlertInterval)
	diContainer.OnClose(container.ServiceAlerts, func() error {
		alerts.Stop()
		return nil
	})

	feedFetcher := fetcher.New(&fetcher.Options{
		Timeout:      config.FetchConfig.Timeout,
		UserAgent:    config.FetchConfig.UserAgent,
		MaxBodyBytes: config.FetchConfig.MaxBodyBytes,
	})

	orchestrator := feedsync.NewOrchestrator(st, st, st, feedFetcher, logger)
	orchestrator.Alerts = alerts
	orchestrator.RunBudget = config.SyncConfig.RunBudget
	if config.FeedLockEnabled {
		orchestrator.Locker = lock.NewRedisLocker(redisClient, config.FeedLockTTL)
		logger.WithField("lock_ttl", config.FeedLockTTL.String()).Info("Per-feed sync lock enabled")
	}

	var statusBackend cache.Cache
	var checks []health.Check
	if redisClient != nil {
		statusBackend = cache.NewRedisCache(redisClient, "feedsync:", config.AsyncConfig.JobTTL)
		checks = append(checks, health.Check{Name: "redis", Pinger: redisPinger{redisClient}})
	} else {
		memoryCache := cache.NewInMemoryCache(config.AsyncConfig.JobTTL)
		diContainer.OnClose("job_status_cache", func() error {
			memoryCache.Close()
			return nil
		})
		statusBackend = memoryCache
	}

	async := handlers.NewAsyncProcessor(
		orchestrator,
		cache.NewJobStatusCache(statusBackend, logger, config.AsyncConfig.JobTTL),
		handlers.AsyncProcessorOptions{
			QueueSize:           config.AsyncConfig.QueueSize,
			BackpressureEnabled: config.AsyncConfig.Backpressure,
			RejectThreshold:     config.AsyncConfig.RejectThreshold,
			WaitTimeout:         config.AsyncConfig.WaitTimeout,
			RunTimeout:          config.AsyncConfig.RunTimeout,
		},
		logger,
	)
	diContainer.OnClose(container.ServiceAsync, func() error {
		async.Stop()
		return nil
	})

	if err := diContainer.InitializeServices(st, orchestrator, async, logger, checks...); err != nil {
		return nil, fmt.Errorf("failed to initialize dependency container: %w", err)
	}

	return &Services{
		Container: diContainer,
		Logger:    logger,
	}, nil
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// NewAppConfig creates a new application configuration with all dependencies
func NewAppConfig(ctx context.Context, logger *logrus.Logger) (*AppConfig, error) {
	config := NewConfig()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	services, err := NewServices(ctx, config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &AppConfig{
		Config:   config,
		Services: services,
	}, nil
}

// Close gracefully closes all service connections
func (s *Services) Close() error {
	if s.Container != nil {
		return s.Container.Close()
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat gets an environment variable as float64 with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt gets an environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as time.Duration with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as bool with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvSlice gets an environment variable as a string slice with a default value
func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
