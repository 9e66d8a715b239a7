package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aescanero/quizcast/internal/application/bot"
	"github.com/aescanero/quizcast/internal/application/maintenance"
	"github.com/aescanero/quizcast/internal/config"
	analyticsmemory "github.com/aescanero/quizcast/pkg/adapters/analytics/memory"
	analyticspostgres "github.com/aescanero/quizcast/pkg/adapters/analytics/postgres"
	"github.com/aescanero/quizcast/pkg/adapters/backup"
	eventsmemory "github.com/aescanero/quizcast/pkg/adapters/events/memory"
	eventsredis "github.com/aescanero/quizcast/pkg/adapters/events/redis"
	"github.com/aescanero/quizcast/pkg/adapters/llm"
	"github.com/aescanero/quizcast/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/quizcast/pkg/adapters/ratelimit"
	storagememory "github.com/aescanero/quizcast/pkg/adapters/storage/memory"
	storageredis "github.com/aescanero/quizcast/pkg/adapters/storage/redis"
	"github.com/aescanero/quizcast/pkg/adapters/telegram"
	"github.com/aescanero/quizcast/pkg/api/http"
	"github.com/aescanero/quizcast/pkg/api/websocket"
	"github.com/aescanero/quizcast/pkg/ports"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting quizcast",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("mode", cfg.Telegram.Mode))

	ctx := context.Background()

	// Optional Redis: sessions, rate limiting and events fall back to
	// in-memory adapters when no address is configured.
	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Session store and rate limiter
	var sessions ports.SessionStore
	var limiter ports.RateLimiter
	var pruner maintenance.Pruner
	if redisClient != nil {
		sessions = storageredis.NewSessionStore(redisClient, cfg.Retention(), logger)
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.Limits.MaxRequestsPerMinute, time.Minute)
	} else {
		sessions = storagememory.NewSessionStore()
		memLimiter := ratelimit.NewMemoryLimiter(cfg.Limits.MaxRequestsPerMinute, time.Minute)
		limiter = memLimiter
		pruner = memLimiter
	}

	// Event bus
	var eventBus ports.EventBus
	if redisClient != nil {
		bus, err := eventsredis.NewStreamsEventBus(
			redisClient,
			"quizcast-consumers",
			fmt.Sprintf("quizcast-%d", os.Getpid()),
			logger,
		)
		if err != nil {
			logger.Fatal("failed to create event bus", zap.Error(err))
		}
		eventBus = bus
	} else {
		eventBus = eventsmemory.NewInMemoryEventBus()
	}

	// Analytics store: relational when a database is configured
	var analytics ports.AnalyticsStore
	var pgStore *analyticspostgres.Store
	if cfg.Postgres.DSN != "" {
		pgStore, err = analyticspostgres.NewStore(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			logger.Fatal("failed to connect to Postgres", zap.Error(err))
		}
		analytics = pgStore
		logger.Info("analytics backed by Postgres")
	} else {
		analytics = analyticsmemory.NewStore(24 * time.Hour)
	}

	metricsCollector := prometheus.NewCollector()

	// Telegram client
	tgClient, err := telegram.NewClient(&telegram.Config{
		Token:      cfg.Telegram.Token,
		MaxRetries: cfg.Telegram.MaxRetries,
		RetryDelay: cfg.Telegram.RetryDelay,
		Metrics:    metricsCollector,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("failed to create Telegram client", zap.Error(err))
	}

	// LLM quiz generator (disabled without an API key)
	generator, err := llm.NewGenerator(&llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.DefaultModel,
		Timeout:  cfg.LLM.RequestTimeout,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to create quiz generator", zap.Error(err))
	}

	// Application components
	botManager := bot.NewManager(&bot.Config{
		Sender:        tgClient,
		Sessions:      sessions,
		Analytics:     analytics,
		Limiter:       limiter,
		EventBus:      eventBus,
		Metrics:       metricsCollector,
		Validator:     bot.NewValidator(),
		Generator:     generator,
		Logger:        logger,
		PollDelay:     cfg.Telegram.PollSendDelay,
		GenerateCount: cfg.LLM.DefaultQuestions,
	})

	backupWriter := backup.NewWriter(
		cfg.Maintenance.BackupDir,
		cfg.Maintenance.BackupKeep,
		sessions,
		analytics,
		logger,
	)

	runner := maintenance.NewRunner(&maintenance.Config{
		Sessions:        sessions,
		Limiter:         pruner,
		Backup:          backupWriter,
		EventBus:        eventBus,
		Metrics:         metricsCollector,
		Logger:          logger,
		Retention:       cfg.Retention(),
		CleanupInterval: cfg.Maintenance.CleanupInterval,
		BackupInterval:  cfg.BackupInterval(),
		HealthInterval:  cfg.Maintenance.HealthCheckInterval,
		MemoryLimitMB:   cfg.Limits.MaxMemoryUsageMB,
	})

	runCtx, cancelRun := context.WithCancel(ctx)
	runner.Start(runCtx)

	// HTTP API server
	httpServer := http.NewServer(&http.Config{
		Port:        cfg.HTTPPort,
		Bot:         botManager,
		Maintenance: runner,
		Analytics:   analytics,
		Sessions:    sessions,
		Telegram:    tgClient,
		Settings: map[string]interface{}{
			"mode":                      cfg.Telegram.Mode,
			"max_retries":               cfg.Telegram.MaxRetries,
			"retry_delay":               cfg.Telegram.RetryDelay.String(),
			"poll_send_delay":           cfg.Telegram.PollSendDelay.String(),
			"max_requests_per_minute":   cfg.Limits.MaxRequestsPerMinute,
			"max_memory_usage_mb":       cfg.Limits.MaxMemoryUsageMB,
			"user_data_retention_hours": cfg.Limits.UserDataRetentionHours,
			"backup_interval_hours":     cfg.Maintenance.BackupIntervalHours,
			"redis":                     cfg.Redis.Addr != "",
			"postgres":                  cfg.Postgres.DSN != "",
			"generator":                 generator.Available(),
		},
		Logger: logger,
	})

	// Live event stream for diagnostics
	wsHandler := websocket.NewHandler(eventBus, logger)
	httpServer.SetupWebSocket(wsHandler)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Update ingestion: long polling by default, webhook when configured
	switch cfg.Telegram.Mode {
	case "webhook":
		if err := tgClient.SetWebhook(cfg.Telegram.WebhookURL); err != nil {
			logger.Fatal("failed to set webhook", zap.Error(err))
		}
		logger.Info("webhook registered", zap.String("url", cfg.Telegram.WebhookURL))
	default:
		if err := tgClient.DeleteWebhook(); err != nil {
			logger.Warn("failed to delete webhook", zap.Error(err))
		}
		go func() {
			for update := range tgClient.Poll(runCtx) {
				if err := botManager.HandleUpdate(runCtx, update); err != nil {
					logger.Error("failed to handle update",
						zap.Int("update_id", update.UpdateID),
						zap.Error(err))
				}
			}
		}()
	}

	logger.Info("quizcast started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("bot_username", tgClient.Username()))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Stops the polling loop and the maintenance tasks
	cancelRun()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	runner.Stop()

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if pgStore != nil {
		pgStore.Close()
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("quizcast shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
