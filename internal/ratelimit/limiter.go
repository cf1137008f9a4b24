package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"econ-health-api/internal/config"
	"econ-health-api/internal/logger"

	"golang.org/x/time/rate"
)

// Limiter applies a token-bucket limit per client IP to inbound requests.
type Limiter struct {
	Configuration *config.Config
	logger        *logger.Logger

	clientsMutex sync.Mutex
	clients      map[string]*clientLimiter

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a new rate limiter
func NewLimiter(configuration *config.Config, logger *logger.Logger) *Limiter {
	rateLimiter := &Limiter{
		Configuration: configuration,
		logger:        logger,
		clients:       make(map[string]*clientLimiter),
		cleanupTicker: time.NewTicker(5 * time.Minute),
		stopCleanup:   make(chan struct{}),
	}

	go rateLimiter.cleanup()
	return rateLimiter
}

// Allow checks if a request from the given IP is allowed
func (rateLimiter *Limiter) Allow(clientIP string) bool {
	if !rateLimiter.Configuration.RateLimitEnabled {
		return true
	}

	rateLimiter.clientsMutex.Lock()
	client, exists := rateLimiter.clients[clientIP]
	if !exists {
		perSecond := float64(rateLimiter.Configuration.RateLimitRequests) / rateLimiter.Configuration.RateLimitWindow.Seconds()
		client = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(perSecond), rateLimiter.Configuration.RateLimitBurst),
		}
		rateLimiter.clients[clientIP] = client
	}
	client.lastSeen = time.Now()
	rateLimiter.clientsMutex.Unlock()

	return client.limiter.Allow()
}

// GetClientIP extracts the real client IP from the request
func (rateLimiter *Limiter) GetClientIP(request *http.Request) string {
	// Check X-Forwarded-For header
	if xForwardedFor := request.Header.Get("X-Forwarded-For"); xForwardedFor != "" {
		if clientIP := net.ParseIP(xForwardedFor); clientIP != nil {
			return clientIP.String()
		}
		// If multiple IPs, take the first one
		if host, _, err := net.SplitHostPort(xForwardedFor); err == nil {
			if clientIP := net.ParseIP(host); clientIP != nil {
				return clientIP.String()
			}
		}
	}

	// Check X-Real-IP header
	if xRealIP := request.Header.Get("X-Real-IP"); xRealIP != "" {
		if clientIP := net.ParseIP(xRealIP); clientIP != nil {
			return clientIP.String()
		}
	}

	// Fall back to RemoteAddr
	clientIP, _, parseError := net.SplitHostPort(request.RemoteAddr)
	if parseError != nil {
		return request.RemoteAddr
	}
	return clientIP
}

// cleanup removes idle client buckets to prevent unbounded growth
func (rateLimiter *Limiter) cleanup() {
	for {
		select {
		case <-rateLimiter.cleanupTicker.C:
			cutoff := time.Now().Add(-24 * time.Hour)
			rateLimiter.clientsMutex.Lock()
			for clientIP, client := range rateLimiter.clients {
				if client.lastSeen.Before(cutoff) {
					delete(rateLimiter.clients, clientIP)
				}
			}
			rateLimiter.clientsMutex.Unlock()
		case <-rateLimiter.stopCleanup:
			rateLimiter.cleanupTicker.Stop()
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (rateLimiter *Limiter) Stop() {
	close(rateLimiter.stopCleanup)
}
