// Package cache stores collection API responses in Redis so repeated page
// loads (paging back and forth, the bulk walk revisiting the start of the
// collection) do not hit the remote API again.
//
// Entries live until the response's Expires header (or Cache-Control
// max-age) says they are stale, falling back to DefaultTTL. Entries that
// carry an ETag or Last-Modified value are revalidated with a conditional
// request once stale handling kicks in; a 304 refreshes the TTL and serves the
// cached body.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		Host:     "api.artic.edu",
//		Endpoint: "/api/v1/artworks",
//		Query:    url.Values{"page": {"1"}, "limit": {"12"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then:
//		entry, _ = cache.ResponseToEntry(resp)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Metrics
//
//   - catalog_cache_hits_total
//   - catalog_cache_misses_total
//   - catalog_cache_bytes_written_total
//   - catalog_cache_not_modified_total
//   - catalog_cache_conditional_requests_total
//   - catalog_cache_errors_total{operation}
//
// Selection state is never stored here; the cache only holds API responses.
package cache
