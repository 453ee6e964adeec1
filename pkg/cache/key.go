package cache

import (
	"net/url"
	"slices"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "artic"

// Key identifies a cached API response.
type Key struct {
	// Host is the upstream (host[:port]) the response came from. Upstreams
	// sharing one Redis never see each other's entries.
	Host string

	// Endpoint is the request path, e.g. "/api/v1/artworks".
	Endpoint string

	// Query holds the query parameters. Multi-valued params keep their order.
	Query url.Values
}

// String builds a deterministic Redis key.
//
//	artic:api.artic.edu:api/v1/artworks:fields=id,title:limit=12:page=1
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if host := strings.ToLower(k.Host); host != "" {
		parts = append(parts, host)
	}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	names := make([]string, 0, len(k.Query))
	for name := range k.Query {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		parts = append(parts, name+"="+strings.Join(k.Query[name], ","))
	}

	return strings.Join(parts, ":")
}
