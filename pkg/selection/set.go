// Package selection tracks which catalog items a user has selected across
// page navigation.
//
// The Tracker holds only identifiers, never full items, so its footprint does
// not grow with the number of pages browsed. What a page shows as checked is
// always derived from the tracker (VisibleSelection), and page-scoped
// selection events only ever touch the identifiers of that page
// (ReconcilePage).
package selection

import (
	"slices"

	"github.com/Sternrassler/artwork-catalog/pkg/catalog"
)

// Set is a set of item identifiers.
type Set map[catalog.ID]struct{}

// NewSet builds a set from ids.
func NewSet(ids ...catalog.ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(id catalog.ID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of identifiers.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the identifiers in ascending order.
func (s Set) Sorted() []catalog.ID {
	ids := make([]catalog.ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}
