// Package testutil provides testing utilities for the artwork catalog.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sternrassler/artwork-catalog/pkg/catalog"
)

// MemorySource is an in-memory catalog.PageSource over a fixed item list.
type MemorySource struct {
	mu    sync.Mutex
	items []catalog.Item

	// OmitPagination makes every page come back without metadata.
	OmitPagination bool

	// FailPage, when > 0, makes FetchPage return FailErr for that page.
	FailPage int
	FailErr  error

	// BeforeFetch runs before each fetch; used to block or cancel mid-walk.
	BeforeFetch func(ctx context.Context, page, size int)

	calls []Call
}

// Call records one FetchPage invocation.
type Call struct {
	Page int
	Size int
}

// NewMemorySource creates a source over items.
func NewMemorySource(items []catalog.Item) *MemorySource {
	return &MemorySource{items: items}
}

// NewSequentialSource creates a source with ids 1..n.
func NewSequentialSource(n int) *MemorySource {
	return NewMemorySource(Artworks(1, n))
}

// Artworks builds items with ids from..to.
func Artworks(from, to int) []catalog.Item {
	items := make([]catalog.Item, 0, to-from+1)
	for i := from; i <= to; i++ {
		items = append(items, catalog.Item{
			ID:            catalog.ID(i),
			Title:         fmt.Sprintf("Artwork %d", i),
			PlaceOfOrigin: "Chicago",
			ArtistDisplay: fmt.Sprintf("Artist %d", i),
			DateStart:     1800 + i,
			DateEnd:       1801 + i,
		})
	}
	return items
}

// FetchPage implements catalog.PageSource.
func (s *MemorySource) FetchPage(ctx context.Context, page, size int) (*catalog.Page, error) {
	if s.BeforeFetch != nil {
		s.BeforeFetch(ctx, page, size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Page: page, Size: size})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.FailPage > 0 && page == s.FailPage {
		return nil, s.FailErr
	}
	if page < 1 || size < 1 {
		return nil, fmt.Errorf("invalid page %d size %d", page, size)
	}

	result := &catalog.Page{Number: page, Size: size}

	start := (page - 1) * size
	if start < len(s.items) {
		end := min(start+size, len(s.items))
		result.Items = append([]catalog.Item(nil), s.items[start:end]...)
	}

	if !s.OmitPagination {
		result.Pagination = &catalog.Pagination{
			Total:       len(s.items),
			Limit:       size,
			Offset:      start,
			TotalPages:  (len(s.items) + size - 1) / size,
			CurrentPage: page,
		}
	}

	return result, nil
}

// Calls returns the recorded FetchPage invocations.
func (s *MemorySource) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Reset clears recorded calls.
func (s *MemorySource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}
