package pagination

import "context"

// PageResult is one page of raw records returned by a PageFetcher.
type PageResult[Raw any] struct {
	// Items are the raw records in server order.
	Items []Raw

	// TotalCount is the size of the whole collection. Only meaningful when the
	// request asked for it.
	TotalCount int
}

// PageFetcher adapts a remote listing endpoint to the pager.
//
// Req is the request template: everything that stays the same across pages
// (parent, filters, sort order). Prepare returns a copy scoped to one page and
// Execute runs it.
type PageFetcher[Req, Raw any] interface {
	// Prepare returns a copy of req limited to [startIndex, startIndex+limit).
	Prepare(req Req, startIndex, limit int, enableTotalRecordCount bool) Req

	// Execute performs the prepared request.
	Execute(ctx context.Context, req Req) (PageResult[Raw], error)
}

// ItemFetcher loads a single raw record by its external identifier.
type ItemFetcher[Raw any] interface {
	FetchItem(ctx context.Context, id string) (Raw, error)
}

// MapOptions carries list-level mapping preferences.
type MapOptions struct {
	// PreferSeriesGrouping makes episodes use their series id as grouping key.
	PreferSeriesGrouping bool
}

// ItemMapper converts raw records into domain items.
type ItemMapper[Raw, Item any] interface {
	MapItem(raw Raw, opts MapOptions) Item
}

// MapperFunc adapts a plain function to ItemMapper.
type MapperFunc[Raw, Item any] func(raw Raw, opts MapOptions) Item

// MapItem implements ItemMapper.
func (f MapperFunc[Raw, Item]) MapItem(raw Raw, opts MapOptions) Item {
	return f(raw, opts)
}
