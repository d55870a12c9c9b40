package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Orchestrator
	Orchestrator OrchestratorConfig

	// Backtest
	Backtest BacktestConfig

	// External APIs
	EDGAR EDGARConfig
	Stooq StooqConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration. Redis is optional; when disabled
// the response cache and sliding-window limiter are no-ops.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// OrchestratorConfig holds update orchestrator settings.
type OrchestratorConfig struct {
	// Concurrency caps total in-flight fetch tasks per batch.
	Concurrency int
	// PollInterval is the daemon tick interval.
	PollInterval time.Duration
	// FirstUpdateWindow is how far back to fetch for a pair that has
	// never been updated.
	FirstUpdateWindow time.Duration
	// BackfillWindow is the default historical depth for backfill runs.
	BackfillWindow time.Duration
}

// BacktestConfig holds validation engine settings.
type BacktestConfig struct {
	// Horizons are forward windows in trading days.
	Horizons []int
	// MinSamples is the minimum retained events per (type, horizon)
	// before statistics are reported.
	MinSamples int
	// Alpha is the two-sided significance level.
	Alpha float64
}

// EDGARConfig holds SEC EDGAR API configuration. The SEC requires a
// descriptive User-Agent with contact information.
type EDGARConfig struct {
	BaseURL   string
	UserAgent string
}

// StooqConfig holds the daily price CSV endpoint configuration.
type StooqConfig struct {
	BaseURL string
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Orchestrator: OrchestratorConfig{
			Concurrency:       getEnvAsInt("UPDATE_CONCURRENCY", 8),
			PollInterval:      getEnvAsDuration("UPDATE_POLL_INTERVAL", "5m"),
			FirstUpdateWindow: getEnvAsDuration("UPDATE_FIRST_WINDOW", "720h"), // 30 days
			BackfillWindow:    getEnvAsDuration("BACKFILL_WINDOW", "17520h"),  // 2 years
		},

		Backtest: BacktestConfig{
			Horizons:   getEnvAsIntSlice("BACKTEST_HORIZONS", []int{5, 20, 60}),
			MinSamples: getEnvAsInt("BACKTEST_MIN_SAMPLES", 10),
			Alpha:      getEnvAsFloat("BACKTEST_ALPHA", 0.05),
		},

		EDGAR: EDGARConfig{
			BaseURL:   getEnv("EDGAR_BASE_URL", "https://data.sec.gov"),
			UserAgent: getEnv("EDGAR_USER_AGENT", ""),
		},

		Stooq: StooqConfig{
			BaseURL: getEnv("STOOQ_BASE_URL", "https://stooq.com"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Orchestrator.Concurrency < 1 {
		return fmt.Errorf("UPDATE_CONCURRENCY must be at least 1")
	}

	if c.Orchestrator.PollInterval < time.Second {
		return fmt.Errorf("UPDATE_POLL_INTERVAL must be at least 1s")
	}

	if c.Backtest.Alpha <= 0 || c.Backtest.Alpha >= 1 {
		return fmt.Errorf("BACKTEST_ALPHA must be in (0, 1)")
	}

	if c.Backtest.MinSamples < 2 {
		return fmt.Errorf("BACKTEST_MIN_SAMPLES must be at least 2")
	}

	if len(c.Backtest.Horizons) == 0 {
		return fmt.Errorf("BACKTEST_HORIZONS must not be empty")
	}
	for _, h := range c.Backtest.Horizons {
		if h < 1 {
			return fmt.Errorf("BACKTEST_HORIZONS entries must be positive, got %d", h)
		}
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsIntSlice(key string, defaultValue []int) []int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		values = append(values, value)
	}

	return values
}
