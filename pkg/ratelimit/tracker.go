package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	requestsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_rate_limit_remaining",
		Help: "Requests remaining in the current collection API rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to an exhausted quota",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to a low quota",
	})
)

// ThrottleDelay is how long a request waits when the quota is low.
var ThrottleDelay = 1 * time.Second

// Tracker records quota state in Redis and gates requests on it.
type Tracker struct {
	redis  *redis.Client
	keys   Keys
	logger zerolog.Logger
}

// NewTracker creates a quota tracker for the upstream at host.
func NewTracker(redisClient *redis.Client, host string, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		keys:   KeysFor(host),
		logger: logger,
	}
}

// Keys returns the Redis keys this tracker reads and writes.
func (t *Tracker) Keys() Keys {
	return t.keys
}

// GetState loads quota state from Redis. With nothing recorded yet it
// returns a healthy default.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	values, err := t.redis.MGet(ctx,
		t.keys.Remaining,
		t.keys.Limit,
		t.keys.ResetTimestamp,
		t.keys.LastUpdate,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	if values[0] == nil {
		t.logger.Debug().Msg("No rate limit state in Redis, assuming healthy")
		return &State{
			Remaining:  100,
			ResetAt:    time.Now().Add(60 * time.Second),
			LastUpdate: time.Now(),
			IsHealthy:  true,
		}, nil
	}

	remaining, err := redisInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	limit, _ := redisInt(values[1])
	var resetMillis int64
	if raw, ok := values[2].(string); ok {
		resetMillis, _ = strconv.ParseInt(raw, 10, 64)
	}

	state := &State{
		Remaining: remaining,
		Limit:     limit,
		ResetAt:   time.UnixMilli(resetMillis),
	}

	if raw, ok := values[3].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &state.LastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state.UpdateHealth()
	return state, nil
}

func redisInt(v any) (int, error) {
	s, ok := v.(string)
	if !ok {
		return 0, errors.New("missing value")
	}
	return strconv.Atoi(s)
}

// UpdateFromHeaders records the quota carried by a response. Responses
// without X-RateLimit-Remaining are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get("X-RateLimit-Remaining")
	if remainStr == "" {
		return nil
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
	}

	limit := 0
	if limitStr := headers.Get("X-RateLimit-Limit"); limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil {
			return fmt.Errorf("parse X-RateLimit-Limit header: %w", err)
		}
	}

	resetIn := 60 * time.Second
	if resetStr := headers.Get("X-RateLimit-Reset"); resetStr != "" {
		seconds, err := strconv.Atoi(resetStr)
		if err != nil {
			return fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
		}
		resetIn = time.Duration(seconds) * time.Second
	}

	now := time.Now()
	return t.store(ctx, &State{
		Remaining:  remaining,
		Limit:      limit,
		ResetAt:    now.Add(resetIn),
		LastUpdate: now,
	})
}

// RecordExhausted marks the quota as spent until retryAfter has passed,
// typically from a 429 response.
func (t *Tracker) RecordExhausted(ctx context.Context, retryAfter time.Duration) error {
	if retryAfter <= 0 {
		retryAfter = time.Second
	}
	now := time.Now()
	return t.store(ctx, &State{
		Remaining:  0,
		ResetAt:    now.Add(retryAfter),
		LastUpdate: now,
	})
}

func (t *Tracker) store(ctx context.Context, state *State) error {
	state.UpdateHealth()

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, t.keys.Remaining, state.Remaining, 0)
	pipe.Set(ctx, t.keys.Limit, state.Limit, 0)
	pipe.Set(ctx, t.keys.ResetTimestamp, state.ResetAt.UnixMilli(), 0)
	pipe.Set(ctx, t.keys.LastUpdate, lastUpdateJSON, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	requestsRemaining.Set(float64(state.Remaining))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Bool("is_healthy", state.IsHealthy).
			Msg("Rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest reports whether a request may go out now. In the
// warning band it first waits ThrottleDelay, returning early with the
// context's error if ctx ends.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Rate limit critical - blocking request")
		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Rate limit warning - throttling request")
		rateLimitThrottlesTotal.Inc()

		timer := time.NewTimer(ThrottleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}
