package pagination

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheCapacity is the number of pages a window keeps by default.
const DefaultCacheCapacity = 8

// PageWindow is a bounded pageNumber -> page store with LRU eviction.
//
// The underlying LRU is safe for concurrent use. PagedList still serializes
// its read-modify-write sequences with its own mutex.
type PageWindow[Item any] struct {
	pages    *lru.Cache[int, []Item]
	capacity int
}

// NewPageWindow creates a window holding at most capacity pages.
func NewPageWindow[Item any](capacity int) (*PageWindow[Item], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("page window capacity must be > 0 (got %d)", capacity)
	}

	pages, err := lru.New[int, []Item](capacity)
	if err != nil {
		return nil, fmt.Errorf("create page lru: %w", err)
	}

	return &PageWindow[Item]{
		pages:    pages,
		capacity: capacity,
	}, nil
}

// Get returns the page and marks it as most recently used.
func (w *PageWindow[Item]) Get(pageNumber int) ([]Item, bool) {
	return w.pages.Get(pageNumber)
}

// Peek returns the page without touching recency.
func (w *PageWindow[Item]) Peek(pageNumber int) ([]Item, bool) {
	return w.pages.Peek(pageNumber)
}

// Contains reports whether the page is cached without touching recency.
func (w *PageWindow[Item]) Contains(pageNumber int) bool {
	return w.pages.Contains(pageNumber)
}

// Put inserts or replaces a page. Returns true if another page was evicted.
func (w *PageWindow[Item]) Put(pageNumber int, page []Item) bool {
	evicted := w.pages.Add(pageNumber, page)
	if evicted {
		PageEvictions.Inc()
	}
	return evicted
}

// Len returns the number of cached pages.
func (w *PageWindow[Item]) Len() int {
	return w.pages.Len()
}

// Capacity returns the maximum number of cached pages.
func (w *PageWindow[Item]) Capacity() int {
	return w.capacity
}

// SnapshotAll copies the current pageNumber -> page mapping.
// Page slices are shared; callers must treat them as read-only.
func (w *PageWindow[Item]) SnapshotAll() map[int][]Item {
	keys := w.pages.Keys()
	out := make(map[int][]Item, len(keys))
	for _, key := range keys {
		if page, ok := w.pages.Peek(key); ok {
			out[key] = page
		}
	}
	return out
}
