// Package client provides the HTTP client for the artworks collection API,
// with shared rate limiting, response caching, and retries.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/artwork-catalog/pkg/cache"
	"github.com/Sternrassler/artwork-catalog/pkg/catalog"
	"github.com/Sternrassler/artwork-catalog/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for API client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total collection API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Collection API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_errors_total",
		Help: "Total collection API errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the public collection API.
const DefaultBaseURL = "https://api.artic.edu/api/v1"

// Client is the collection API client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	retry       RetryConfig
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for caching and rate limit state
	Redis *redis.Client

	// BaseURL is prefixed to every endpoint, e.g. DefaultBaseURL.
	BaseURL string

	// User-Agent header identifying this application to the API operators.
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// RespectExpires enables the response cache, keyed by endpoint and
	// query and kept fresh per Expires / Cache-Control.
	RespectExpires bool

	// Retry
	MaxRetries     int // Retries after the first attempt
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// RequestTimeout bounds a single HTTP attempt.
	RequestTimeout time.Duration

	// Fields limits the item attributes the API returns. Empty means all.
	Fields []string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	retry := DefaultRetryConfig()
	return Config{
		Redis:          redis,
		BaseURL:        DefaultBaseURL,
		UserAgent:      userAgent,
		RespectExpires: true,
		MaxRetries:     retry.MaxAttempts - 1,
		InitialBackoff: retry.InitialBackoff,
		MaxBackoff:     retry.MaxBackoff,
		RequestTimeout: 30 * time.Second,
		Fields:         catalog.Fields,
	}
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	logger := log.With().Str("component", "catalog-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		rateLimiter: ratelimit.NewTracker(cfg.Redis, strings.ToLower(base.Host), logger),
		cache:       cache.NewManager(cfg.Redis),
		config:      cfg,
		retry: RetryConfig{
			MaxAttempts:       cfg.MaxRetries + 1,
			InitialBackoff:    cfg.InitialBackoff,
			MaxBackoff:        cfg.MaxBackoff,
			BackoffMultiplier: 2.0,
		}.withDefaults(),
		logger: logger,
	}, nil
}

// Do performs a GET-style request with rate limiting, caching, and retries.
//
// A fresh cached response is served without touching the network. A stale
// one with validators turns the request into a conditional one, and a 304
// answer is served from the cache. Any status >= 400 is returned as an
// *APIError; server, rate-limit, and network failures are retried first.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Rate Limit
	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrContextCancelled, ctxErr)
		}
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, ErrRateLimited
	}

	req = req.Clone(ctx)

	// Step 2: Check Cache
	cacheKey := cache.Key{
		Host:     req.URL.Host,
		Endpoint: endpoint,
		Query:    req.URL.Query(),
	}

	var stale *cache.Entry
	if c.config.RespectExpires {
		entry, err := c.cache.GetStale(ctx, cacheKey)
		switch {
		case err == nil && !entry.IsExpired():
			cache.CacheHits.Inc()
			requestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			c.logger.Debug().Str("endpoint", endpoint).Msg("Serving fresh cache entry")
			return cache.EntryToResponse(entry), nil
		case err == nil:
			cache.CacheMisses.Inc()
			stale = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// Step 3: Revalidate a stale entry
	if cache.ShouldMakeConditionalRequest(stale) {
		cache.AddConditionalHeaders(req, stale)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", stale.ETag).
			Msg("Making conditional request")
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 4: Execute with retry
	var resp *http.Response
	retryErr := retryWithBackoff(ctx, c.retry, func() error {
		r, err := c.httpClient.Do(req.Clone(ctx))
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			return err
		}

		if err := c.rateLimiter.UpdateFromHeaders(ctx, r.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		if r.StatusCode < 400 {
			resp = r
			return nil
		}

		errClass := classifyError(r, nil)
		apiErr := &APIError{
			StatusCode: r.StatusCode,
			ErrorClass: errClass,
			Message:    r.Status,
			RetryAfter: parseRetryAfter(r.Header.Get("Retry-After")),
		}
		io.Copy(io.Discard, io.LimitReader(r.Body, 64<<10))
		r.Body.Close()

		errorsTotal.WithLabelValues(string(errClass)).Inc()
		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(r.StatusCode)).Inc()

		if errClass == ErrorClassRateLimit {
			if err := c.rateLimiter.RecordExhausted(ctx, apiErr.RetryAfter); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to record exhausted quota")
			}
		}

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", r.StatusCode).
			Str("error_class", string(errClass)).
			Msg("API request error")

		return apiErr
	}, func(err error) ErrorClass {
		return classifyError(nil, err)
	})
	if retryErr != nil {
		return nil, retryErr
	}

	// Step 5: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		if stale == nil {
			return nil, fmt.Errorf("%w: 304 for %s without a cached entry", ErrMalformedResponse, endpoint)
		}

		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		requestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()

		if err := c.cache.UpdateTTL(ctx, cacheKey, cache.ExpiresFromHeaders(resp.Header)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}
		return cache.EntryToResponse(stale), nil
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 6: Update Cache on success
	if c.config.RespectExpires && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("read response: %w", err)
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// Get performs a GET request to endpoint, relative to the configured base URL.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	target := c.config.BaseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
