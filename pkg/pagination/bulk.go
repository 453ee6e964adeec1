package pagination

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/artwork-catalog/pkg/catalog"
	"github.com/Sternrassler/artwork-catalog/pkg/logging"
	"github.com/Sternrassler/artwork-catalog/pkg/selection"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// ErrInvalidCount is returned for a bulk count that is not a positive integer.
var ErrInvalidCount = errors.New("bulk count must be a positive integer")

// Outcome labels for bulk selection metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeExhausted = "exhausted"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

var (
	bulkSelectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_bulk_selections_total",
		Help: "Total bulk selections by outcome",
	}, []string{"outcome"})

	bulkPagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_bulk_pages_fetched_total",
		Help: "Total pages fetched by bulk selections",
	})

	bulkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_bulk_duration_seconds",
		Help:    "Duration of bulk selection walks",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
)

// Config holds bulk selector configuration.
type Config struct {
	// PageSize is the page size used while walking the collection.
	// Independent of (and normally larger than) the display page size.
	PageSize int

	// PageTimeout bounds each page fetch. Zero means no per-page timeout.
	PageTimeout time.Duration
}

// DefaultConfig returns the default bulk configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: 100,
	}
}

// BulkSelector materializes "select the first N items" against a paginated
// source and installs the result in a Tracker.
type BulkSelector struct {
	source  catalog.PageSource
	tracker *selection.Tracker
	config  Config
	logger  zerolog.Logger
}

// NewBulkSelector creates a bulk selector.
func NewBulkSelector(source catalog.PageSource, tracker *selection.Tracker, config Config) *BulkSelector {
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	if config.PageTimeout < 0 {
		config.PageTimeout = 0
	}

	return &BulkSelector{
		source:  source,
		tracker: tracker,
		config:  config,
		logger:  logging.NewLogger("bulk-selector"),
	}
}

// ParseCount validates user input for a bulk request.
func ParseCount(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCount, raw)
	}
	return n, nil
}

// SelectFirstN replaces the tracker's selection with the first n distinct
// items of the collection (or all of them, if there are fewer).
func (b *BulkSelector) SelectFirstN(ctx context.Context, n int) (selection.Set, error) {
	ids, err := b.Collect(ctx, n)
	if err != nil {
		return nil, err
	}

	set := selection.NewSet(ids...)
	b.tracker.Replace(set)

	b.logger.Info().
		Int("requested", n).
		Int("selected", set.Len()).
		Msg("Bulk selection applied")

	return set, nil
}

// Collect walks the collection and returns the first n distinct ids in
// source order (page order, then item order within the page).
func (b *BulkSelector) Collect(ctx context.Context, n int) ([]catalog.ID, error) {
	if n <= 0 {
		bulkSelectionsTotal.WithLabelValues(OutcomeRejected).Inc()
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, n)
	}

	start := time.Now()
	defer func() {
		bulkDuration.Observe(time.Since(start).Seconds())
	}()

	seen := make(selection.Set, min(n, 1024))
	ids := make([]catalog.ID, 0, min(n, 1024))
	remaining := n

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			bulkSelectionsTotal.WithLabelValues(OutcomeCancelled).Inc()
			b.logger.Warn().
				Int("page", page).
				Int("remaining", remaining).
				Msg("Bulk selection cancelled")
			return nil, err
		}

		result, err := b.fetch(ctx, page)
		if err != nil {
			outcome := OutcomeFailed
			if ctx.Err() != nil {
				outcome = OutcomeCancelled
			}
			bulkSelectionsTotal.WithLabelValues(outcome).Inc()
			b.logger.Warn().
				Err(err).
				Int("page", page).
				Int("remaining", remaining).
				Msg("Bulk selection aborted")
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		bulkPagesFetchedTotal.Inc()

		for _, item := range result.Items {
			if seen.Has(item.ID) {
				continue
			}
			seen[item.ID] = struct{}{}
			ids = append(ids, item.ID)
			remaining--
			if remaining == 0 {
				break
			}
		}

		b.logger.Debug().
			Int("page", page).
			Int("page_size", b.config.PageSize).
			Int("items", len(result.Items)).
			Int("remaining", remaining).
			Msg("Bulk page scanned")

		if remaining == 0 {
			bulkSelectionsTotal.WithLabelValues(OutcomeCompleted).Inc()
			break
		}
		if !result.Pagination.HasMetadata() || page >= result.Pagination.TotalPages {
			bulkSelectionsTotal.WithLabelValues(OutcomeExhausted).Inc()
			b.logger.Info().
				Int("requested", n).
				Int("available", len(ids)).
				Int("pages", page).
				Msg("Source exhausted before bulk count reached")
			break
		}
	}

	b.logger.Debug().
		Int("selected", len(ids)).
		Dur("duration", time.Since(start)).
		Msg("Bulk walk complete")

	return ids, nil
}

func (b *BulkSelector) fetch(ctx context.Context, page int) (*catalog.Page, error) {
	if b.config.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.PageTimeout)
		defer cancel()
	}

	result, err := b.source.FetchPage(ctx, page, b.config.PageSize)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("source returned no page")
	}
	return result, nil
}
