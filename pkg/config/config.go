// Package config loads runtime configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults mirror the provider's documented listing parameters.
const (
	defaultBaseURL   = "https://api.polygon.io"
	defaultMarket    = "stocks"
	defaultSort      = "ticker"
	defaultOrder     = "asc"
	defaultPageLimit = 1000
	defaultPrefix    = "stock_tickers"
)

// Config holds the exporter configuration.
type Config struct {
	// APIKey is the provider credential. Required, treated as opaque.
	APIKey string

	// BaseURL is the API origin.
	BaseURL string

	// Listing query parameters for the first request; subsequent requests
	// use the server-supplied continuation URL verbatim.
	Market    string
	Active    bool
	Sort      string
	Order     string
	PageLimit int

	// OutputDir is where the CSV file lands; OutputPrefix names it.
	OutputDir    string
	OutputPrefix string

	// RedisURL enables the optional page cache when set.
	RedisURL string
	CacheTTL time.Duration

	// MetricsAddr exposes /metrics when set (e.g. ":9090").
	MetricsAddr string

	// Logging.
	LogLevel  string
	LogPretty bool
}

// Load reads a .env file when present, then builds the configuration from
// the environment.
func Load() (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from environment variables.
func FromEnv() (*Config, error) {
	cfg := &Config{
		APIKey:       os.Getenv("POLYGON_API_KEY"),
		BaseURL:      getEnv("POLYGON_BASE_URL", defaultBaseURL),
		Market:       getEnv("TICKER_MARKET", defaultMarket),
		Active:       getEnvBool("TICKER_ACTIVE", true),
		Sort:         getEnv("TICKER_SORT", defaultSort),
		Order:        getEnv("TICKER_ORDER", defaultOrder),
		PageLimit:    getEnvInt("TICKER_PAGE_LIMIT", defaultPageLimit),
		OutputDir:    getEnv("OUTPUT_DIR", "."),
		OutputPrefix: getEnv("OUTPUT_PREFIX", defaultPrefix),
		RedisURL:     os.Getenv("REDIS_URL"),
		CacheTTL:     getEnvDuration("CACHE_TTL", 1*time.Hour),
		MetricsAddr:  os.Getenv("METRICS_ADDR"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogPretty:    getEnvBool("LOG_PRETTY", false),
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("POLYGON_API_KEY is not set")
	}
	if cfg.PageLimit < 1 || cfg.PageLimit > 1000 {
		return nil, fmt.Errorf("TICKER_PAGE_LIMIT must be between 1 and 1000 (got %d)", cfg.PageLimit)
	}

	return cfg, nil
}

// ListURL builds the initial listing request URL with filter and sort
// parameters. The API key is not embedded here; the client appends it.
func (c *Config) ListURL() string {
	q := url.Values{}
	q.Set("market", c.Market)
	q.Set("active", strconv.FormatBool(c.Active))
	q.Set("order", c.Order)
	q.Set("limit", strconv.Itoa(c.PageLimit))
	q.Set("sort", c.Sort)
	return c.BaseURL + "/v3/reference/tickers?" + q.Encode()
}

// MaskedKey returns a loggable form of the API key showing only the first
// four characters.
func (c *Config) MaskedKey() string {
	if len(c.APIKey) <= 4 {
		return "****"
	}
	return c.APIKey[:4] + "****"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
