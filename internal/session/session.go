// Package session holds per-user browsing state: the page window currently
// on display and the selection that survives navigation away from it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/artwork-catalog/pkg/catalog"
	"github.com/Sternrassler/artwork-catalog/pkg/pagination"
	"github.com/Sternrassler/artwork-catalog/pkg/selection"
	"github.com/rs/zerolog"
)

// DefaultPageSize is the number of rows shown per page.
const DefaultPageSize = 12

var (
	// ErrNoPage is returned for a selection event before any page was loaded.
	ErrNoPage = errors.New("no page loaded")

	// ErrStalePage is returned for a selection event that names a page other
	// than the one on display.
	ErrStalePage = errors.New("selection is for a page that is no longer displayed")

	// ErrInvalidPage is returned for page numbers below 1.
	ErrInvalidPage = errors.New("page must be >= 1")
)

// now is replaced in tests.
var now = time.Now

// Config holds per-session settings.
type Config struct {
	// PageSize is the display page size.
	PageSize int

	// Bulk configures "select the first N" walks.
	Bulk pagination.Config
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: DefaultPageSize,
		Bulk:     pagination.DefaultConfig(),
	}
}

// Row is one displayed item and whether it is checked.
type Row struct {
	catalog.Item
	Selected bool `json:"selected"`
}

// View is what a display renders: the current page's rows, which of them
// are checked, and the global selection size.
type View struct {
	Page          int   `json:"page"`
	PageSize      int   `json:"page_size"`
	TotalPages    int   `json:"total_pages"`
	TotalItems    int   `json:"total_items"`
	Rows          []Row `json:"rows"`
	SelectedCount int   `json:"selected_count"`
	BulkRunning   bool  `json:"bulk_running"`
}

// Session is one user's browsing state.
//
// Page loads, selection events and bulk walks may run concurrently. They are
// not serialized against each other; the selection reflects whichever write
// landed last.
type Session struct {
	ID string

	source   catalog.PageSource
	tracker  *selection.Tracker
	bulk     *pagination.BulkSelector
	pageSize int
	logger   zerolog.Logger

	mu         sync.Mutex
	window     *catalog.Page
	cancelBulk context.CancelFunc
	bulkSeq    uint64
	lastSeen   time.Time
}

// New creates a session reading from source.
func New(id string, source catalog.PageSource, config Config, logger zerolog.Logger) *Session {
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}

	tracker := selection.NewTracker()
	return &Session{
		ID:       id,
		source:   source,
		tracker:  tracker,
		bulk:     pagination.NewBulkSelector(source, tracker, config.Bulk),
		pageSize: config.PageSize,
		logger:   logger.With().Str("session_id", id).Logger(),
		lastSeen: now(),
	}
}

// LoadPage fetches page for display and makes it the current window.
//
// A failed fetch leaves the previous window and the selection untouched.
// Loading a page never changes the selection.
func (s *Session) LoadPage(ctx context.Context, page int) (View, error) {
	s.touch()
	if page < 1 {
		return View{}, fmt.Errorf("%w (got %d)", ErrInvalidPage, page)
	}

	result, err := s.source.FetchPage(ctx, page, s.pageSize)
	if err != nil {
		s.logger.Warn().Err(err).Int("page", page).Msg("Page load failed")
		return View{}, fmt.Errorf("load page %d: %w", page, err)
	}
	if result == nil {
		return View{}, fmt.Errorf("load page %d: source returned no page", page)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = result

	s.logger.Debug().
		Int("page", page).
		Int("items", len(result.Items)).
		Msg("Page loaded")

	return s.viewLocked(), nil
}

// ApplySelection reconciles a selection event for the displayed page: the
// page's ids in selected become selected, the rest of the page's ids are
// deselected, and other pages are left alone. Ids in selected that are not
// on the displayed page are ignored.
func (s *Session) ApplySelection(page int, selected []catalog.ID) (View, error) {
	s.touch()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.window == nil {
		return View{}, ErrNoPage
	}
	if page != s.window.Number {
		return View{}, fmt.Errorf("%w: got page %d, displaying page %d", ErrStalePage, page, s.window.Number)
	}

	pageIDs := s.window.IDs()
	onPage := selection.NewSet(pageIDs...)
	scoped := make([]catalog.ID, 0, len(selected))
	for _, id := range selected {
		if onPage.Has(id) {
			scoped = append(scoped, id)
		}
	}

	count := s.tracker.ReconcilePage(pageIDs, scoped)
	s.logger.Debug().
		Int("page", page).
		Int("selected_on_page", len(scoped)).
		Int("selected_total", count).
		Msg("Selection reconciled")

	return s.viewLocked(), nil
}

// SelectFirstN replaces the selection with the first n items of the
// collection, where n is parsed from raw user input. Invalid input returns
// pagination.ErrInvalidCount and leaves the selection as it was, as does a
// failed or cancelled walk.
//
// Starting a walk cancels one already in flight.
func (s *Session) SelectFirstN(ctx context.Context, raw string) (View, error) {
	s.touch()

	n, err := pagination.ParseCount(raw)
	if err != nil {
		return s.View(), err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancelBulk != nil {
		s.cancelBulk()
	}
	s.bulkSeq++
	seq := s.bulkSeq
	s.cancelBulk = cancel
	s.mu.Unlock()

	_, err = s.bulk.SelectFirstN(ctx, n)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bulkSeq == seq {
		s.cancelBulk = nil
	}
	return s.viewLocked(), err
}

// CancelBulk cancels the walk in flight, if any, and reports whether there
// was one.
func (s *Session) CancelBulk() bool {
	s.touch()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelBulk == nil {
		return false
	}
	s.cancelBulk()
	s.cancelBulk = nil
	s.logger.Info().Msg("Bulk selection cancelled")
	return true
}

// BulkRunning reports whether a walk is in flight.
func (s *Session) BulkRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelBulk != nil
}

// Selection returns the selected ids in ascending order.
func (s *Session) Selection() []catalog.ID {
	s.touch()
	return s.tracker.IDs()
}

// ClearSelection deselects everything.
func (s *Session) ClearSelection() View {
	s.touch()
	s.tracker.Clear()
	return s.View()
}

// View returns the current page with checked rows derived from the selection.
// Polling the view keeps the session alive.
func (s *Session) View() View {
	s.touch()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	view := View{
		PageSize:      s.pageSize,
		Rows:          []Row{},
		BulkRunning:   s.cancelBulk != nil,
	}
	if s.window == nil {
		view.SelectedCount = s.tracker.Count()
		return view
	}

	view.Page = s.window.Number
	if p := s.window.Pagination; p.HasMetadata() {
		view.TotalPages = p.TotalPages
		view.TotalItems = p.Total
	}

	visible, count := s.tracker.VisibleWithCount(s.window.IDs())
	view.SelectedCount = count

	checked := selection.NewSet(visible...)
	view.Rows = make([]Row, len(s.window.Items))
	for i, item := range s.window.Items {
		view.Rows[i] = Row{Item: item, Selected: checked.Has(item.ID)}
	}
	return view
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = now()
	s.mu.Unlock()
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
