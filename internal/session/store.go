package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/artwork-catalog/pkg/catalog"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "catalog_sessions_active",
	Help: "Number of open browsing sessions",
})

// ErrNotFound is returned for an unknown session id.
var ErrNotFound = errors.New("session not found")

// Store keeps sessions in memory. Selections are never persisted: they end
// with the session or the process.
type Store struct {
	source catalog.PageSource
	config Config
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a store whose sessions read from source.
func NewStore(source catalog.PageSource, config Config, logger zerolog.Logger) *Store {
	return &Store{
		source:   source,
		config:   config,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Create opens a new session with a random id.
func (st *Store) Create() *Session {
	s := New(uuid.NewString(), st.source, st.config, st.logger)

	st.mu.Lock()
	st.sessions[s.ID] = s
	n := len(st.sessions)
	st.mu.Unlock()

	sessionsActive.Set(float64(n))
	st.logger.Info().Str("session_id", s.ID).Msg("Session created")
	return s
}

// Get returns the session with id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete closes a session, cancelling its bulk walk if one is running.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	n := len(st.sessions)
	st.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	s.CancelBulk()
	sessionsActive.Set(float64(n))
	st.logger.Info().Str("session_id", id).Msg("Session closed")
	return nil
}

// Len returns the number of open sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep closes sessions unused for longer than maxIdle and returns how many
// it closed. Sessions with a bulk walk in flight are kept.
func (st *Store) Sweep(maxIdle time.Duration) int {
	cutoff := now().Add(-maxIdle)

	st.mu.Lock()
	var expired []string
	for id, s := range st.sessions {
		if s.LastSeen().Before(cutoff) && !s.BulkRunning() {
			expired = append(expired, id)
			delete(st.sessions, id)
		}
	}
	n := len(st.sessions)
	st.mu.Unlock()

	if len(expired) > 0 {
		sessionsActive.Set(float64(n))
		st.logger.Info().
			Int("expired", len(expired)).
			Int("active", n).
			Msg("Idle sessions swept")
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx ends.
func (st *Store) Run(ctx context.Context, interval, maxIdle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st.Sweep(maxIdle)
		}
	}
}
