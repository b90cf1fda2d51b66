// Package config provides configuration management for the token signal scanner.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Market     MarketConfig
	Scoring    ScoringConfig
	Rotation   RotationConfig
	History    HistoryConfig
	Scan       ScanConfig
	Stablecoin StablecoinConfig
	Logging    LoggingConfig
}

// ServerConfig holds stats API server configuration
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// MarketConfig holds upstream market-data provider configuration
type MarketConfig struct {
	APIKey            string
	BaseURL           string
	UniverseLimit     int
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	RateLimitRetries  int           // attempts after a 429 before giving up
	RateLimitBackoff  time.Duration // default backoff when Retry-After is absent
	ServerErrRetries  int           // attempts after a 5xx before giving up
	ServerErrDelay    time.Duration // fixed delay between 5xx retries
}

// ScoringConfig holds signal detection thresholds
type ScoringConfig struct {
	AnomalyRatioPct     float64 // V/MC percentage at or above which a token is an anomaly
	SpikeLimit          int     // top-N by volume score eligible as spikes
	SpikeMinScore       float64 // minimum volume score for a spike
	TrendMoverMinChange float64 // minimum |24h change| percent for a trend mover
	TrendMoverLimit     int     // top-N by |24h change| eligible as trend movers
	MaxValidChangePct   float64 // spikes with |change| beyond this band are dropped as implausible
	MaxSpikes           int     // spikes surfaced per cycle
	MaxAnomalies        int     // anomalies surfaced per cycle
}

// RotationConfig holds rotation cache configuration
type RotationConfig struct {
	Window   time.Duration
	Capacity int
	Bypass   bool
}

// HistoryConfig holds history tracker configuration
type HistoryConfig struct {
	MaxObservations int
	Shards          int
}

// ScanConfig holds scan worker configuration
type ScanConfig struct {
	Interval time.Duration
}

// StablecoinConfig holds the stablecoin detection heuristic tunables
type StablecoinConfig struct {
	PriceLow  float64
	PriceHigh float64
	Markers   []string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "token_scanner"),
				User:           getEnv("POSTGRES_USER", "scanner"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "token_scanner"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Market: MarketConfig{
			APIKey:            getEnv("CRYPTORANK_API_KEY", ""),
			BaseURL:           getEnv("CRYPTORANK_BASE_URL", "https://api.cryptorank.io/v2"),
			UniverseLimit:     getEnvAsInt("MARKET_UNIVERSE_LIMIT", 500),
			RequestTimeout:    getEnvAsDuration("MARKET_REQUEST_TIMEOUT", 10*time.Second),
			RequestsPerSecond: getEnvAsFloat("MARKET_REQUESTS_PER_SECOND", 0.5),
			RateLimitRetries:  getEnvAsInt("MARKET_RATE_LIMIT_RETRIES", 3),
			RateLimitBackoff:  getEnvAsDuration("MARKET_RATE_LIMIT_BACKOFF", 5*time.Second),
			ServerErrRetries:  getEnvAsInt("MARKET_SERVER_ERR_RETRIES", 3),
			ServerErrDelay:    getEnvAsDuration("MARKET_SERVER_ERR_DELAY", 5*time.Second),
		},
		Scoring: ScoringConfig{
			AnomalyRatioPct:     getEnvAsFloat("SCORING_ANOMALY_RATIO_PCT", 80),
			SpikeLimit:          getEnvAsInt("SCORING_SPIKE_LIMIT", 10),
			SpikeMinScore:       getEnvAsFloat("SCORING_SPIKE_MIN_SCORE", 40),
			TrendMoverMinChange: getEnvAsFloat("SCORING_TREND_MIN_CHANGE", 5),
			TrendMoverLimit:     getEnvAsInt("SCORING_TREND_MOVER_LIMIT", 5),
			MaxValidChangePct:   getEnvAsFloat("SCORING_MAX_VALID_CHANGE", 30),
			MaxSpikes:           getEnvAsInt("SCORING_MAX_SPIKES", 2),
			MaxAnomalies:        getEnvAsInt("SCORING_MAX_ANOMALIES", 1),
		},
		Rotation: RotationConfig{
			Window:   getEnvAsDuration("ROTATION_WINDOW", 48*time.Hour),
			Capacity: getEnvAsInt("ROTATION_CAPACITY", 50),
			Bypass:   getEnvAsBool("ROTATION_BYPASS", false),
		},
		History: HistoryConfig{
			MaxObservations: getEnvAsInt("HISTORY_MAX_OBSERVATIONS", 100),
			Shards:          getEnvAsInt("HISTORY_SHARDS", 16),
		},
		Scan: ScanConfig{
			Interval: getEnvAsDuration("SCAN_INTERVAL", 5*time.Minute),
		},
		Stablecoin: StablecoinConfig{
			PriceLow:  getEnvAsFloat("STABLECOIN_PRICE_LOW", 0.95),
			PriceHigh: getEnvAsFloat("STABLECOIN_PRICE_HIGH", 1.05),
			Markers:   getEnvAsList("STABLECOIN_MARKERS", "USD,USDT,USDC,DAI,BUSD,TUSD,USDD,FDUSD,FRAX,LUSD,SUSD"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a bool with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList gets a comma-separated environment variable as a string slice
func getEnvAsList(key, defaultValue string) []string {
	raw := strings.Split(getEnv(key, defaultValue), ",")
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}
