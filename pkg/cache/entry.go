package cache

import (
	"net/http"
	"time"
)

// replayHeaders are the response headers kept with an entry. Other headers
// are not stored.
var replayHeaders = []string{
	"Cache-Control",
	"Content-Type",
	"Date",
	"ETag",
	"Expires",
	"Last-Modified",
}

// CacheEntry is one stored media server response.
type CacheEntry struct {
	Data         []byte      `json:"data"`
	StatusCode   int         `json:"status_code"`
	Headers      http.Header `json:"headers,omitempty"`
	ETag         string      `json:"etag,omitempty"`
	LastModified time.Time   `json:"last_modified,omitempty"`

	CachedAt time.Time `json:"cached_at"`
	Expires  time.Time `json:"expires"`

	// Revalidations counts 304 answers since the body was stored.
	Revalidations int       `json:"revalidations,omitempty"`
	RevalidatedAt time.Time `json:"revalidated_at,omitempty"`
}

// IsExpired reports whether the entry is past Expires.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the remaining lifetime, 0 once expired.
func (e *CacheEntry) TTL() time.Duration {
	return max(0, time.Until(e.Expires))
}

// Age returns how long ago the body was fetched.
func (e *CacheEntry) Age() time.Duration {
	if e.CachedAt.IsZero() {
		return 0
	}
	return time.Since(e.CachedAt)
}

// Revalidated records a 304 from the server at now and moves the expiry.
// The body and its validators stay untouched.
func (e *CacheEntry) Revalidated(now, expires time.Time) {
	e.Revalidations++
	e.RevalidatedAt = now
	e.Expires = expires
}

// keepHeaders copies the replayable subset of h.
func keepHeaders(h http.Header) http.Header {
	kept := http.Header{}
	for _, name := range replayHeaders {
		for _, v := range h.Values(name) {
			kept.Add(name, v)
		}
	}
	return kept
}
