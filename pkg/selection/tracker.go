package selection

import (
	"sync"

	"github.com/Sternrassler/artwork-catalog/pkg/catalog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_selection_reconciles_total",
		Help: "Total page-scoped selection events reconciled into the global selection",
	})

	replacementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_selection_replacements_total",
		Help: "Total wholesale replacements of the global selection",
	})
)

// Tracker owns the global selection for one browsing session.
//
// Operations are individually atomic. Nothing orders a ReconcilePage against
// a concurrent Replace: whichever lands last wins.
type Tracker struct {
	mu  sync.RWMutex
	ids Set
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{ids: make(Set)}
}

// ReconcilePage merges a page-scoped selection event into the global set and
// returns the new selection size.
//
// Every id of pageIDs missing from selectedOnPage is removed; every id of
// selectedOnPage is added. Identifiers that are not on the page are left as
// they were. Applying the same event twice yields the same set.
func (t *Tracker) ReconcilePage(pageIDs, selectedOnPage []catalog.ID) int {
	selected := NewSet(selectedOnPage...)

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range pageIDs {
		if !selected.Has(id) {
			delete(t.ids, id)
		}
	}
	for id := range selected {
		t.ids[id] = struct{}{}
	}

	reconcilesTotal.Inc()
	return len(t.ids)
}

// VisibleSelection returns the ids of pageIDs that are globally selected, in
// page order.
func (t *Tracker) VisibleSelection(pageIDs []catalog.ID) []catalog.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.visibleLocked(pageIDs)
}

func (t *Tracker) visibleLocked(pageIDs []catalog.ID) []catalog.ID {
	visible := make([]catalog.ID, 0, len(pageIDs))
	for _, id := range pageIDs {
		if t.ids.Has(id) {
			visible = append(visible, id)
		}
	}
	return visible
}

// VisibleWithCount returns VisibleSelection(pageIDs) and Count() read from
// the same state, so a concurrent Replace cannot land between them.
func (t *Tracker) VisibleWithCount(pageIDs []catalog.ID) ([]catalog.ID, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.visibleLocked(pageIDs), len(t.ids)
}

// Count returns the number of globally selected items.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}

// Contains reports whether id is globally selected.
func (t *Tracker) Contains(id catalog.ID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ids.Has(id)
}

// Snapshot returns a copy of the global set.
func (t *Tracker) Snapshot() Set {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ids.Clone()
}

// IDs returns the selected identifiers in ascending order.
func (t *Tracker) IDs() []catalog.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ids.Sorted()
}

// Replace swaps the global set for a copy of ids. The previous selection is
// discarded, not merged.
func (t *Tracker) Replace(ids Set) {
	next := ids.Clone()

	t.mu.Lock()
	t.ids = next
	t.mu.Unlock()

	replacementsTotal.Inc()
}

// Clear empties the selection.
func (t *Tracker) Clear() {
	t.Replace(nil)
}
