package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// DefaultNamespace prefixes keys when CacheKey.Namespace is empty.
const DefaultNamespace = "mediacache"

// CacheKey identifies a cached response.
type CacheKey struct {
	// Namespace separates servers sharing one Redis (e.g. "jf", "seerr")
	Namespace string

	// Endpoint is the request path (e.g. "/Users/{id}/Items")
	Endpoint string

	// QueryParams are the request query parameters
	QueryParams url.Values

	// UserID scopes per-user responses; empty for shared endpoints
	UserID string
}

// String generates a deterministic cache key string.
// Format: namespace:endpoint:query1=a,b:query2=c:user=ID
//
// Example:
//
//	jf:Users/abc/Items:Limit=100:StartIndex=0:user=abc
func (k CacheKey) String() string {
	ns := k.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	parts := []string{ns}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			values := append([]string(nil), k.QueryParams[key]...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(values, ",")))
		}
	}

	if k.UserID != "" {
		parts = append(parts, "user="+k.UserID)
	}

	return strings.Join(parts, ":")
}

// Scope groups the cached responses of one server and user so they can be
// invalidated together.
type Scope struct {
	Namespace string
	UserID    string
}

// Scope returns the scope key belongs to.
func (k CacheKey) Scope() Scope {
	return Scope{Namespace: k.Namespace, UserID: k.UserID}
}

// IndexKey names the Redis set holding every key stored under s.
// Format: namespace#index or namespace#index#user=ID
func (s Scope) IndexKey() string {
	ns := s.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	if s.UserID == "" {
		return ns + "#index"
	}
	return ns + "#index#user=" + s.UserID
}
