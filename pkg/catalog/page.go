package catalog

import "context"

// Pagination is the advisory metadata the source reports for the page size
// used in a specific request.
type Pagination struct {
	Total       int `json:"total"`
	Limit       int `json:"limit"`
	Offset      int `json:"offset"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}

// HasMetadata reports whether the source told us how many pages exist.
func (p *Pagination) HasMetadata() bool {
	return p != nil && p.TotalPages > 0
}

// Page is one fetched window of the collection.
type Page struct {
	// Number is the 1-based page index that was requested.
	Number int

	// Size is the page size that was requested.
	Size int

	// Items in source order.
	Items []Item

	// Pagination is nil when the source reported no metadata.
	Pagination *Pagination
}

// IDs returns the identifiers of the page's items in source order.
func (p *Page) IDs() []ID {
	if p == nil {
		return nil
	}
	ids := make([]ID, len(p.Items))
	for i, item := range p.Items {
		ids[i] = item.ID
	}
	return ids
}

// PageSource fetches pages of the collection.
//
// Page indexes are 1-based. Implementations must accept arbitrary page sizes
// and report pagination metadata consistent with the size requested, because
// the display and the bulk selector page through the same collection with
// different sizes.
type PageSource interface {
	FetchPage(ctx context.Context, page, size int) (*Page, error)
}

// PageSourceFunc adapts a function to PageSource.
type PageSourceFunc func(ctx context.Context, page, size int) (*Page, error)

// FetchPage calls f.
func (f PageSourceFunc) FetchPage(ctx context.Context, page, size int) (*Page, error) {
	return f(ctx, page, size)
}
