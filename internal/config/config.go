package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Source holds the settings for a single upstream data source.
type Source struct {
	Name     string
	BaseURL  string
	APIKey   string
	Enabled  bool
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Config holds all configuration for the application
type Config struct {
	Port     string
	LogLevel string

	// Upstream data sources
	FRED     Source
	Market   Source
	Treasury Source
	News     Source

	// History window requested from FRED and the market API
	LookbackDays int

	// Symbols charted on the Markets page
	MarketSymbols []string

	// Default GDELT query and item cap for the news feed
	NewsQuery    string
	NewsMaxItems int

	// Cached payloads older than this are treated as absent even when
	// the upstream is down
	StalenessCeiling time.Duration

	MaxConcurrentRequests int

	// Client-side throttle applied per upstream host
	UpstreamRPS   float64
	UpstreamBurst int

	// Rate limiting (inbound)
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		FRED: Source{
			Name:     "fred",
			BaseURL:  getEnv("FRED_BASE_URL", "https://api.stlouisfed.org/fred/series/observations"),
			APIKey:   getEnv("FRED_API_KEY", ""),
			Enabled:  getEnv("FRED_ENABLED", "true") == "true",
			Timeout:  seconds(getEnv("FRED_TIMEOUT_SECONDS", "10")),
			CacheTTL: seconds(getEnv("FRED_CACHE_TTL_SECONDS", "3600")),
		},
		Market: Source{
			Name:     "market",
			BaseURL:  getEnv("MARKET_BASE_URL", "https://query1.finance.yahoo.com/v8/finance/chart"),
			Enabled:  getEnv("MARKET_ENABLED", "true") == "true",
			Timeout:  seconds(getEnv("MARKET_TIMEOUT_SECONDS", "10")),
			CacheTTL: seconds(getEnv("MARKET_CACHE_TTL_SECONDS", "900")),
		},
		Treasury: Source{
			Name:     "treasury",
			BaseURL:  getEnv("TREASURY_BASE_URL", "https://api.fiscaldata.treasury.gov/services/api/fiscal_service/v2/accounting/od/debt_to_penny"),
			Enabled:  getEnv("TREASURY_ENABLED", "true") == "true",
			Timeout:  seconds(getEnv("TREASURY_TIMEOUT_SECONDS", "10")),
			CacheTTL: seconds(getEnv("TREASURY_CACHE_TTL_SECONDS", "21600")),
		},
		News: Source{
			Name:     "gdelt",
			BaseURL:  getEnv("GDELT_BASE_URL", "https://api.gdeltproject.org/api/v2/doc/doc"),
			Enabled:  getEnv("GDELT_ENABLED", "true") == "true",
			Timeout:  seconds(getEnv("GDELT_TIMEOUT_SECONDS", "10")),
			CacheTTL: seconds(getEnv("GDELT_CACHE_TTL_SECONDS", "600")),
		},

		LookbackDays: mustAtoi(getEnv("LOOKBACK_DAYS", "1825")),

		MarketSymbols: splitList(getEnv("MARKET_SYMBOLS", "GLD,SPY,VTI")),

		NewsQuery:    getEnv("NEWS_QUERY", "US economy OR inflation OR jobs OR recession OR Federal Reserve OR debt ceiling"),
		NewsMaxItems: mustAtoi(getEnv("NEWS_MAX_ITEMS", "12")),

		StalenessCeiling: seconds(getEnv("STALENESS_CEILING_SECONDS", "86400")),

		MaxConcurrentRequests: mustAtoi(getEnv("MAX_CONCURRENT_REQUESTS", "4")),

		UpstreamRPS:   mustAtof(getEnv("UPSTREAM_RPS", "4")),
		UpstreamBurst: mustAtoi(getEnv("UPSTREAM_BURST", "8")),

		RateLimitEnabled:  getEnv("RATE_LIMIT_ENABLED", "true") == "true",
		RateLimitRequests: mustAtoi(getEnv("RATE_LIMIT_REQUESTS", "100")),
		RateLimitWindow:   seconds(getEnv("RATE_LIMIT_WINDOW_SECONDS", "60")),
		RateLimitBurst:    mustAtoi(getEnv("RATE_LIMIT_BURST", "10")),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 60
	}
	return i
}

func mustAtof(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 1
	}
	return f
}

func seconds(s string) time.Duration {
	return time.Duration(mustAtoi(s)) * time.Second
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
