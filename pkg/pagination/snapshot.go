package pagination

import "sort"

// unknownTotal marks a list whose total count has not been fetched yet.
const unknownTotal = -1

// Snapshot is an immutable view of a PagedList at one point in time.
type Snapshot[Item any] struct {
	// TotalCount is the remote collection size, -1 until known.
	TotalCount int

	// PageSize is the number of positions per page.
	PageSize int

	// Version increases by one with every published mutation.
	Version uint64

	pages map[int][]Item
}

// Len returns the number of positions, 0 while the total is unknown.
func (s *Snapshot[Item]) Len() int {
	if s.TotalCount < 0 {
		return 0
	}
	return s.TotalCount
}

// At returns the item at position. ok is false when the page is not cached or
// the page is shorter than expected.
func (s *Snapshot[Item]) At(position int) (Item, bool) {
	var zero Item
	if position < 0 || position >= s.Len() {
		return zero, false
	}

	page, ok := s.pages[position/s.PageSize]
	if !ok {
		return zero, false
	}

	index := position % s.PageSize
	if index >= len(page) {
		return zero, false
	}
	return page[index], true
}

// CachedPages returns the cached page numbers in ascending order.
func (s *Snapshot[Item]) CachedPages() []int {
	numbers := make([]int, 0, len(s.pages))
	for n := range s.pages {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

// PageLen returns the number of items stored for pageNumber, -1 if not cached.
func (s *Snapshot[Item]) PageLen(pageNumber int) int {
	page, ok := s.pages[pageNumber]
	if !ok {
		return -1
	}
	return len(page)
}
