package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the quizcast bot
type Config struct {
	// Server configuration
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Telegram configuration
	Telegram TelegramConfig

	// Rate limiting and retention
	Limits LimitConfig

	// Maintenance intervals
	Maintenance MaintenanceConfig

	// Optional external stores
	Redis    RedisConfig
	Postgres PostgresConfig

	// Optional LLM quiz generation
	LLM LLMConfig
}

// TelegramConfig holds the bot token, update mode and send behavior
type TelegramConfig struct {
	Token string `env:"TELEGRAM_TOKEN,required"`

	// Mode selects how updates are received: "polling" or "webhook".
	Mode       string `env:"BOT_MODE" envDefault:"polling"`
	WebhookURL string `env:"WEBHOOK_URL"`

	// Retry settings for outbound API calls
	MaxRetries int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryDelay time.Duration `env:"RETRY_DELAY" envDefault:"2s"`

	// Delay between consecutive polls of one quiz
	PollSendDelay time.Duration `env:"POLL_SEND_DELAY" envDefault:"50ms"`
}

// LimitConfig holds the rate limit and data retention settings
type LimitConfig struct {
	MaxRequestsPerMinute   int `env:"MAX_REQUESTS_PER_MINUTE" envDefault:"10"`
	MaxMemoryUsageMB       int `env:"MAX_MEMORY_USAGE_MB" envDefault:"256"`
	UserDataRetentionHours int `env:"USER_DATA_RETENTION_HOURS" envDefault:"1"`
}

// MaintenanceConfig holds the scheduled task intervals
type MaintenanceConfig struct {
	CleanupInterval     time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"1m"`
	BackupIntervalHours int           `env:"BACKUP_INTERVAL_HOURS" envDefault:"6"`
	BackupDir           string        `env:"BACKUP_DIR" envDefault:"data/backups"`
	BackupKeep          int           `env:"BACKUP_KEEP" envDefault:"10"`
}

// RedisConfig holds Redis connection configuration. Redis is optional:
// when Addr is empty, sessions, rate limiting and events run in-memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// PostgresConfig holds the analytics store connection. Optional: when
// DSN is empty, analytics counters are kept in-memory.
type PostgresConfig struct {
	DSN string `env:"DATABASE_URL"`
}

// LLMConfig holds LLM provider configuration for /generate. Optional:
// when APIKey is empty the command reports itself unavailable.
type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	APIKey   string `env:"LLM_API_KEY"`

	DefaultModel     string        `env:"LLM_DEFAULT_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	DefaultQuestions int           `env:"LLM_DEFAULT_QUESTIONS" envDefault:"5"`
	RequestTimeout   time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"120s"`
}

// Load reads configuration from a .env file (if present) and the
// environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if c.Telegram.Mode != "polling" && c.Telegram.Mode != "webhook" {
		return fmt.Errorf("invalid bot mode: %s (must be polling or webhook)", c.Telegram.Mode)
	}
	if c.Telegram.Mode == "webhook" && c.Telegram.WebhookURL == "" {
		return fmt.Errorf("webhook mode requires WEBHOOK_URL")
	}
	if c.Telegram.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}

	if c.Limits.MaxRequestsPerMinute < 1 {
		return fmt.Errorf("max requests per minute must be at least 1")
	}
	if c.Limits.UserDataRetentionHours < 1 {
		return fmt.Errorf("user data retention must be at least 1 hour")
	}

	if c.Maintenance.BackupIntervalHours < 1 {
		return fmt.Errorf("backup interval must be at least 1 hour")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Retention returns the session retention window as a duration
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Limits.UserDataRetentionHours) * time.Hour
}

// BackupInterval returns the backup interval as a duration
func (c *Config) BackupInterval() time.Duration {
	return time.Duration(c.Maintenance.BackupIntervalHours) * time.Hour
}
