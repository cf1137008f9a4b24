package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"econ-health-api/internal/api"
	"econ-health-api/internal/cache"
	"econ-health-api/internal/config"
	"econ-health-api/internal/fetch"
	"econ-health-api/internal/logger"
	"econ-health-api/internal/platform"
	"econ-health-api/internal/ratelimit"
	"econ-health-api/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	if cfg.FRED.APIKey == "" {
		logger.Warn("FRED_API_KEY is not set; FRED indicators will be unavailable")
	}

	// Shared fetch client and per-source fetchers
	fetchClient := fetch.NewClient(cfg.UpstreamRPS, cfg.UpstreamBurst, logger)
	fredFetcher := fetch.NewFREDFetcher(cfg.FRED, fetchClient, logger)
	marketFetcher := fetch.NewMarketFetcher(cfg.Market, fetchClient, logger)
	treasuryFetcher := fetch.NewTreasuryFetcher(cfg.Treasury, fetchClient, logger)
	newsFetcher := fetch.NewGDELTFetcher(cfg.News, fetchClient, logger)

	// Cache and dashboard service
	dataCache := cache.New(cfg.StalenessCeiling, logger)
	dashboard := service.NewDashboardService(cfg, logger, dataCache, fredFetcher, marketFetcher, treasuryFetcher, newsFetcher)
	rateLimiter := ratelimit.NewLimiter(cfg, logger)

	// Initialize HTTP handlers
	handlers := api.NewHandlers(api.HandlerConfig{
		Logger:      logger,
		Dashboard:   dashboard,
		RateLimiter: rateLimiter,
	})

	// Setup Gin router
	router := handlers.SetupRoutes()

	// Setup HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting dashboard API on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Create a shutdown context that works across platforms
	shutdownCtx, stop := platform.NewShutdownContext(context.Background())
	defer stop()
	<-shutdownCtx.Done()

	logger.Info("Shutting down server...")

	// Stop rate limiter cleanup
	rateLimiter.Stop()

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
