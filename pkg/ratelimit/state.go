// Package ratelimit tracks the collection API's request quota and gates
// requests before the quota runs dry. State comes from the X-RateLimit-*
// response headers (and Retry-After on 429) and is kept in Redis so every
// client instance sharing an egress IP sees the same budget.
package ratelimit

import (
	"time"
)

// KeyPrefix namespaces quota state in Redis.
const KeyPrefix = "artic:rate_limit"

// Keys names the Redis keys holding one upstream's quota state.
type Keys struct {
	Remaining      string
	Limit          string
	ResetTimestamp string // Unix milliseconds
	LastUpdate     string
}

// KeysFor returns the quota keys for the upstream at host (host[:port]).
// Each upstream has its own quota, so its state never mixes with another's.
func KeysFor(host string) Keys {
	prefix := KeyPrefix + ":"
	if host != "" {
		prefix += host + ":"
	}
	return Keys{
		Remaining:      prefix + "remaining",
		Limit:          prefix + "limit",
		ResetTimestamp: prefix + "reset_timestamp",
		LastUpdate:     prefix + "last_update",
	}
}

// Thresholds on remaining requests in the current window.
const (
	// ThresholdCritical blocks requests below this many remaining.
	ThresholdCritical = 5

	// ThresholdWarning throttles requests below this many remaining.
	ThresholdWarning = 20

	// ThresholdHealthy marks the quota healthy at or above this many remaining.
	ThresholdHealthy = 50
)

// State is the current request quota.
type State struct {
	// Remaining requests in the window (X-RateLimit-Remaining).
	Remaining int `json:"remaining"`

	// Limit is the window size (X-RateLimit-Limit), 0 if unknown.
	Limit int `json:"limit"`

	// ResetAt is when the window resets (X-RateLimit-Reset seconds from now,
	// or Retry-After on a 429).
	ResetAt time.Time `json:"reset_at"`

	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsReset reports whether the window has rolled over since the state was
// recorded, so the recorded Remaining no longer applies.
func (s *State) IsReset() bool {
	return !s.ResetAt.IsZero() && time.Now().After(s.ResetAt)
}

// NeedsCriticalBlock returns true if requests must be blocked.
func (s *State) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical && !s.IsReset()
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *State) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsCriticalBlock() && !s.IsReset()
}

// TimeUntilReset returns the duration until the window resets, or 0.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth recomputes IsHealthy.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
