package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/artwork-catalog/pkg/catalog"
)

// ArtworksEndpoint is the collection listing, relative to the base URL.
const ArtworksEndpoint = "/artworks"

var _ catalog.PageSource = (*Client)(nil)

type artworksResponse struct {
	Pagination *catalog.Pagination `json:"pagination"`
	Data       []catalog.Item      `json:"data"`
}

// FetchPage fetches one 1-based page of artworks at the given page size.
// Pagination is nil on the returned page when the API sent none.
func (c *Client) FetchPage(ctx context.Context, page, size int) (*catalog.Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1 (got %d)", page)
	}
	if size < 1 {
		return nil, fmt.Errorf("page size must be >= 1 (got %d)", size)
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(size))
	if len(c.config.Fields) > 0 {
		query.Set("fields", strings.Join(c.config.Fields, ","))
	}

	resp, err := c.Get(ctx, ArtworksEndpoint, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body artworksResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode artworks page %d: %v", ErrMalformedResponse, page, err)
	}
	if body.Data == nil {
		return nil, fmt.Errorf("%w: artworks page %d has no data array", ErrMalformedResponse, page)
	}

	c.logger.Debug().
		Int("page", page).
		Int("size", size).
		Int("items", len(body.Data)).
		Msg("Fetched artworks page")

	return &catalog.Page{
		Number:     page,
		Size:       size,
		Items:      body.Data,
		Pagination: body.Pagination,
	}, nil
}
