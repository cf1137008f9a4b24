package fetch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"econ-health-api/internal/logger"
	"econ-health-api/internal/metrics"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Client is the shared HTTP layer for all fetchers: one tuned http.Client,
// a per-host token bucket so public APIs are never hammered, and a circuit
// breaker per source so a flapping upstream fails fast and the cache takes
// over.
type Client struct {
	httpClient *http.Client
	logger     *logger.Logger

	limiterMutex sync.RWMutex
	limiters     map[string]*rate.Limiter
	rps          float64
	burst        int

	breakerMutex sync.Mutex
	breakers     map[string]*gobreaker.CircuitBreaker
}

// NewClient creates the shared fetch client.
func NewClient(rps float64, burst int, log *logger.Logger) *Client {
	httpTransport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  false,
	}
	return &Client{
		httpClient: &http.Client{Transport: httpTransport},
		logger:     log,
		limiters:   make(map[string]*rate.Limiter),
		rps:        rps,
		burst:      burst,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
}

// GetJSON performs a GET against rawURL, decodes the JSON body into target,
// and returns a typed fetch error on any failure. Deadlines come from ctx.
func (c *Client) GetJSON(ctx context.Context, source, rawURL string, target interface{}) error {
	breaker := c.breaker(source)

	start := time.Now()
	_, err := breaker.Execute(func() (interface{}, error) {
		return nil, c.getJSON(ctx, source, rawURL, target)
	})
	metrics.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		err = &Error{Kind: KindHTTP, Source: source, Cause: err}
		metrics.FetchRequests.WithLabelValues(source, "breaker_open").Inc()
		return err
	}
	metrics.FetchRequests.WithLabelValues(source, Outcome(err)).Inc()
	return err
}

func (c *Client) getJSON(ctx context.Context, source, rawURL string, target interface{}) error {
	if err := c.waitForHost(ctx, rawURL); err != nil {
		return wrap(source, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return wrap(source, err)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return wrap(source, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
		return &Error{Kind: KindHTTP, Source: source, Status: response.StatusCode}
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return wrap(source, err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return &Error{Kind: KindParse, Source: source, Cause: err}
	}
	return nil
}

// waitForHost blocks until the per-host limiter admits the request.
func (c *Client) waitForHost(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	return c.limiter(parsed.Host).Wait(ctx)
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.limiterMutex.RLock()
	limiter, exists := c.limiters[host]
	c.limiterMutex.RUnlock()
	if exists {
		return limiter
	}

	c.limiterMutex.Lock()
	defer c.limiterMutex.Unlock()
	if limiter, exists := c.limiters[host]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(c.rps), c.burst)
	c.limiters[host] = limiter
	return limiter
}

func (c *Client) breaker(source string) *gobreaker.CircuitBreaker {
	c.breakerMutex.Lock()
	defer c.breakerMutex.Unlock()
	if breaker, exists := c.breakers[source]; exists {
		return breaker
	}

	settings := gobreaker.Settings{Name: source}
	settings.Interval = 60 * time.Second
	settings.Timeout = 60 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 5
	}
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		c.logger.WithSource(name).Warnf("circuit breaker %s -> %s", from, to)
	}

	breaker := gobreaker.NewCircuitBreaker(settings)
	c.breakers[source] = breaker
	return breaker
}
