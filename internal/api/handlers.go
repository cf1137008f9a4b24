package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"econ-health-api/internal/logger"
	"econ-health-api/internal/middleware"
	"econ-health-api/internal/models"
	"econ-health-api/internal/ratelimit"
	"econ-health-api/internal/score"
	"econ-health-api/internal/service"
)

// Dashboard is the slice of the dashboard service the HTTP layer needs.
type Dashboard interface {
	Overview(ctx context.Context) service.Snapshot
	Score(ctx context.Context) (models.HealthScore, error)
	Indicator(ctx context.Context, seriesID string) (*models.IndicatorSeries, bool, error)
	Jobs(ctx context.Context) service.SectionReport
	Markets(ctx context.Context) service.MarketsReport
	Debt(ctx context.Context) service.DebtReport
	News(ctx context.Context, query string, limit int) ([]models.NewsItem, bool)
}

// HandlerConfig wires the handlers' collaborators.
type HandlerConfig struct {
	Logger      *logger.Logger
	Dashboard   Dashboard
	RateLimiter *ratelimit.Limiter
}

// Handlers contains all HTTP handlers
type Handlers struct {
	logger      *logger.Logger
	dashboard   Dashboard
	rateLimiter *ratelimit.Limiter
	startTime   time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(cfg HandlerConfig) *Handlers {
	return &Handlers{
		logger:      cfg.Logger,
		dashboard:   cfg.Dashboard,
		rateLimiter: cfg.RateLimiter,
		startTime:   time.Now(),
	}
}

// SetupRoutes configures all the routes using Gin
func (handlers *Handlers) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestLogger(handlers.logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestID())
	router.Use(handlers.corsMiddleware())

	if handlers.rateLimiter != nil {
		router.Use(handlers.rateLimitMiddleware())
	}

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/overview", handlers.GetOverview)
		apiV1.GET("/score", handlers.GetScore)
		apiV1.GET("/indicators/:id", handlers.GetIndicator)
		apiV1.GET("/jobs", handlers.GetJobs)
		apiV1.GET("/markets", handlers.GetMarkets)
		apiV1.GET("/debt", handlers.GetDebt)
		apiV1.GET("/news", handlers.GetNews)
	}

	return router
}

// HealthCheck handles health check requests
func (handlers *Handlers) HealthCheck(context *gin.Context) {
	context.JSON(http.StatusOK, models.HealthCheck{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(handlers.startTime).String(),
	})
}

// GetOverview returns the full dashboard snapshot. A degraded snapshot is
// still a 200; only a snapshot with no data at all is a gateway error.
func (handlers *Handlers) GetOverview(context *gin.Context) {
	snapshot := handlers.dashboard.Overview(context.Request.Context())

	if len(snapshot.Indicators) == 0 && len(snapshot.Markets) == 0 && snapshot.Debt == nil && len(snapshot.News) == 0 {
		handlers.writeErrorResponse(context, http.StatusBadGateway, "no data available", "all upstream sources failed")
		return
	}
	context.JSON(http.StatusOK, snapshot)
}

// GetScore returns the composite health score with its breakdown.
func (handlers *Handlers) GetScore(context *gin.Context) {
	healthScore, err := handlers.dashboard.Score(context.Request.Context())
	if err != nil {
		if errors.Is(err, score.ErrInsufficientData) {
			handlers.writeErrorResponse(context, http.StatusBadGateway, "insufficient data", err.Error())
			return
		}
		handlers.writeErrorResponse(context, http.StatusBadGateway, "failed to compute score", err.Error())
		return
	}
	context.JSON(http.StatusOK, healthScore)
}

// GetIndicator returns one FRED series by ID.
func (handlers *Handlers) GetIndicator(context *gin.Context) {
	seriesID := strings.ToUpper(context.Param("id"))

	series, stale, err := handlers.dashboard.Indicator(context.Request.Context(), seriesID)
	if err != nil {
		if errors.Is(err, service.ErrUnknownSeries) {
			handlers.writeErrorResponse(context, http.StatusNotFound, "unknown indicator", seriesID)
			return
		}
		handlers.writeErrorResponse(context, http.StatusBadGateway, "failed to fetch indicator", err.Error())
		return
	}

	context.JSON(http.StatusOK, models.APIResponse{Data: series, Status: http.StatusOK, Stale: stale})
}

// GetJobs returns the labor-market series set.
func (handlers *Handlers) GetJobs(context *gin.Context) {
	report := handlers.dashboard.Jobs(context.Request.Context())
	if len(report.Series) == 0 {
		handlers.writeErrorResponse(context, http.StatusBadGateway, "no jobs data available", firstError(report.Errors))
		return
	}
	context.JSON(http.StatusOK, report)
}

// GetMarkets returns market histories, normalized series, and stats.
func (handlers *Handlers) GetMarkets(context *gin.Context) {
	report := handlers.dashboard.Markets(context.Request.Context())
	if len(report.Histories) == 0 {
		handlers.writeErrorResponse(context, http.StatusBadGateway, "no market data available", firstError(report.Errors))
		return
	}
	context.JSON(http.StatusOK, report)
}

// GetDebt returns the debt and consumer-stress cards.
func (handlers *Handlers) GetDebt(context *gin.Context) {
	report := handlers.dashboard.Debt(context.Request.Context())

	available := report.DebtToPenny != nil
	for _, card := range report.Cards {
		if card.Available {
			available = true
		}
	}
	if !available {
		handlers.writeErrorResponse(context, http.StatusBadGateway, "no debt data available", firstError(report.Errors))
		return
	}
	context.JSON(http.StatusOK, report)
}

// GetNews returns the headline feed. Upstream failures surface as an empty
// list, not an error.
func (handlers *Handlers) GetNews(context *gin.Context) {
	query := context.Query("q")
	limit, _ := strconv.Atoi(context.DefaultQuery("limit", "0"))

	items, stale := handlers.dashboard.News(context.Request.Context(), query, limit)
	context.JSON(http.StatusOK, models.APIResponse{Data: items, Status: http.StatusOK, Stale: stale})
}

// writeErrorResponse writes an error response using Gin context
func (handlers *Handlers) writeErrorResponse(context *gin.Context, statusCode int, errorMessage, errorDetails string) {
	context.JSON(statusCode, models.ErrorResponse{
		Error:   errorMessage,
		Message: errorDetails,
		Code:    statusCode,
	})
}

func firstError(errs map[string]string) string {
	for _, message := range errs {
		return message
	}
	return ""
}

// corsMiddleware adds CORS headers using Gin middleware
func (handlers *Handlers) corsMiddleware() gin.HandlerFunc {
	return func(context *gin.Context) {
		context.Header("Access-Control-Allow-Origin", "*")
		context.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		context.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if context.Request.Method == "OPTIONS" {
			context.AbortWithStatus(http.StatusOK)
			return
		}

		context.Next()
	}
}

// rateLimitMiddleware provides rate limiting using Gin middleware
func (handlers *Handlers) rateLimitMiddleware() gin.HandlerFunc {
	return func(context *gin.Context) {
		clientIP := handlers.rateLimiter.GetClientIP(context.Request)

		if !handlers.rateLimiter.Allow(clientIP) {
			handlers.logger.Warnf("Rate limit exceeded for IP: %s", clientIP)
			context.Header("X-RateLimit-Limit", strconv.Itoa(handlers.rateLimiter.Configuration.RateLimitRequests))
			context.Header("X-RateLimit-Remaining", "0")
			context.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(handlers.rateLimiter.Configuration.RateLimitWindow).Unix(), 10))
			context.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			context.Abort()
			return
		}

		context.Next()
	}
}
