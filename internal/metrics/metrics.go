package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FetchRequests counts upstream fetch attempts by source and outcome
// (success, timeout, http_error, parse_error, breaker_open).
var FetchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fetch_requests_total",
	Help: "Upstream fetch attempts by source and outcome.",
}, []string{"source", "outcome"})

// FetchDuration tracks upstream fetch latency per source.
var FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "fetch_duration_seconds",
	Help:    "Upstream fetch latency by source.",
	Buckets: prometheus.DefBuckets,
}, []string{"source"})

// CacheEvents counts cache lookups by event (hit, miss, stale, purge).
var CacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cache_events_total",
	Help: "Cache lookups by event.",
}, []string{"event"})

// HealthScore holds the last computed composite score.
var HealthScore = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "health_score",
	Help: "Last computed economy health score (0-100).",
})
