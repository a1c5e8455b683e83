package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Polymarket API
	PolymarketGammaURL string

	// Market scanning
	ScanInterval    time.Duration
	ScanMarketLimit int

	// Resolution sweeps
	ResolveInterval time.Duration

	// Trading and risk limits. Zero MaxDailyVolume and MaxPositionsPerMarket
	// fall back to the risk manager's defaults (2x exposure, 1 per market).
	PaperTrading          bool
	MaxPositionSize       float64
	MaxTotalExposure      float64
	MaxDailyVolume        float64
	MaxPositionsPerMarket int

	// Audit log
	TradeLogPath string

	// Market cache
	CacheTTL      time.Duration
	CacheMaxItems int64

	// Storage
	StorageMode  string // "postgres" or "memory"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
// A .env file in the working directory is applied first if present; real
// environment variables win over it.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Polymarket API defaults
		PolymarketGammaURL: getEnvOrDefault("POLYMARKET_GAMMA_API_URL", "https://gamma-api.polymarket.com"),

		// Scan defaults
		ScanInterval:    getDurationOrDefault("SCAN_INTERVAL", 5*time.Minute),
		ScanMarketLimit: getIntOrDefault("SCAN_MARKET_LIMIT", 200),
		ResolveInterval: getDurationOrDefault("RESOLVE_INTERVAL", 1*time.Hour),

		// Risk defaults
		PaperTrading:          getBoolOrDefault("PAPER_TRADING", true),
		MaxPositionSize:       getFloat64OrDefault("MAX_POSITION_SIZE", 100.0),
		MaxTotalExposure:      getFloat64OrDefault("MAX_TOTAL_EXPOSURE", 1000.0),
		MaxDailyVolume:        getFloat64OrDefault("MAX_DAILY_VOLUME", 0),
		MaxPositionsPerMarket: getIntOrDefault("MAX_POSITIONS_PER_MARKET", 0),

		// Audit log defaults
		TradeLogPath: getEnvOrDefault("TRADE_LOG_PATH", "data/trades.jsonl"),

		// Cache defaults
		CacheTTL:      getDurationOrDefault("MARKET_CACHE_TTL", 60*time.Second),
		CacheMaxItems: int64(getIntOrDefault("MARKET_CACHE_MAX_ITEMS", 10000)),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "memory"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "agent"),
		PostgresPass: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "prediction_agent"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.PolymarketGammaURL == "" {
		return fmt.Errorf("POLYMARKET_GAMMA_API_URL cannot be empty")
	}

	if c.MaxPositionSize <= 0 {
		return fmt.Errorf("MAX_POSITION_SIZE must be positive, got %f", c.MaxPositionSize)
	}

	if c.MaxTotalExposure <= 0 {
		return fmt.Errorf("MAX_TOTAL_EXPOSURE must be positive, got %f", c.MaxTotalExposure)
	}

	if c.MaxPositionSize > c.MaxTotalExposure {
		return fmt.Errorf("MAX_POSITION_SIZE %f exceeds MAX_TOTAL_EXPOSURE %f", c.MaxPositionSize, c.MaxTotalExposure)
	}

	if c.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL must be positive, got %s", c.ScanInterval)
	}

	if c.ResolveInterval <= 0 {
		return fmt.Errorf("RESOLVE_INTERVAL must be positive, got %s", c.ResolveInterval)
	}

	if c.StorageMode != "memory" && c.StorageMode != "postgres" {
		return fmt.Errorf("STORAGE_MODE must be 'memory' or 'postgres', got %q", c.StorageMode)
	}

	return nil
}

// PostgresDSN renders the connection string for the configured database.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPass, c.PostgresDB, c.PostgresSSL)
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
