// Package cache provides a Redis-backed HTTP response cache for media
// server requests, with ETag and Last-Modified revalidation.
//
// Responses are stored as CacheEntry values keyed by a deterministic
// CacheKey. Freshness comes from the response itself (Cache-Control max-age,
// then Expires) or, when the server sends neither, from a caller supplied
// fallback TTL. Entries with validators can be revalidated with a
// conditional request; a 304 only extends the entry's lifetime. Only the
// headers needed to replay a response are stored.
//
// Keys carry a Scope (namespace plus user). Each scope has an index set in
// Redis, so everything cached for one server user can be invalidated after a
// change on the server made the listings stale.
//
// # Basic Usage
//
//	manager := cache.NewManager(redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	}))
//
//	key := cache.CacheKey{
//		Namespace:   "jf",
//		Endpoint:    "/Users/{id}/Items",
//		QueryParams: url.Values{"StartIndex": {"0"}, "Limit": {"100"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the server
//	}
//
// # HTTP Response Caching
//
//	entry, err := cache.ResponseToEntry(resp, 30*time.Second)
//	if err != nil {
//		return err
//	}
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
//	// after a 304
//	err := manager.Revalidate(ctx, key, entry, time.Now().Add(time.Minute))
//
// # Invalidation
//
//	n, err := manager.Invalidate(ctx, cache.Scope{Namespace: "jf", UserID: userID})
//
// # Metrics
//
//   - response_cache_hits_total{layer="redis"}
//   - response_cache_misses_total
//   - response_cache_stored_bytes_total{layer="redis"}
//   - response_cache_not_modified_total
//   - response_cache_invalidated_total
//   - response_cache_errors_total{operation}
package cache
