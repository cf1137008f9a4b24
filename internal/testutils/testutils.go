package testutils

import (
	"time"

	"econ-health-api/internal/config"
	"econ-health-api/internal/logger"
)

// MockLogger creates a quiet logger for testing
func MockLogger() *logger.Logger {
	return logger.New("error")
}

// MockConfig creates a test configuration with short TTLs and no upstream
// throttling.
func MockConfig() *config.Config {
	return &config.Config{
		Port:     "8081",
		LogLevel: "error",

		FRED: config.Source{
			Name:     "fred",
			BaseURL:  "https://api.test.invalid/fred/series/observations",
			APIKey:   "test-api-key",
			Enabled:  true,
			Timeout:  5 * time.Second,
			CacheTTL: 60 * time.Second,
		},
		Market: config.Source{
			Name:     "market",
			BaseURL:  "https://api.test.invalid/v8/finance/chart",
			Enabled:  true,
			Timeout:  5 * time.Second,
			CacheTTL: 60 * time.Second,
		},
		Treasury: config.Source{
			Name:     "treasury",
			BaseURL:  "https://api.test.invalid/v2/accounting/od/debt_to_penny",
			Enabled:  true,
			Timeout:  5 * time.Second,
			CacheTTL: 60 * time.Second,
		},
		News: config.Source{
			Name:     "gdelt",
			BaseURL:  "https://api.test.invalid/api/v2/doc/doc",
			Enabled:  true,
			Timeout:  5 * time.Second,
			CacheTTL: 60 * time.Second,
		},

		LookbackDays:  365,
		MarketSymbols: []string{"GLD", "SPY", "VTI"},

		NewsQuery:    "US economy",
		NewsMaxItems: 12,

		StalenessCeiling: time.Hour,

		MaxConcurrentRequests: 4,

		UpstreamRPS:   1000,
		UpstreamBurst: 1000,

		RateLimitEnabled:  true,
		RateLimitRequests: 100,
		RateLimitWindow:   60 * time.Second,
		RateLimitBurst:    10,
	}
}
