// Package pagination presents a remote paginated collection as a random-access
// virtual list.
//
// Media servers expose their catalogs through listing endpoints that take an
// offset and a limit and report the total record count. A PagedList wraps one
// such query and fetches pages on demand, keeping a bounded window of pages in
// an LRU cache so that scrolling a large library never loads the whole catalog.
//
// Example usage:
//
//	list, err := pagination.New(ctx, pagination.Source[Query, Raw, Item]{
//		Request: query,
//		Pages:   fetcher,
//		Items:   fetcher,
//		Mapper:  mapper,
//	}, pagination.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer list.Close()
//
//	if err := list.Init(ctx, 0); err != nil {
//		return err
//	}
//
//	// Non-blocking: returns ok == false and schedules a fetch when the page is missing.
//	item, ok, err := list.Get(42)
//
//	// Blocking: waits for the page.
//	item, ok, err = list.GetBlocking(ctx, 420)
//
// The list:
//   - Fetches the first page together with the total count on Init
//   - Serves cached positions without touching the network
//   - Collapses concurrent fetches of the same page into one request
//   - Publishes an immutable Snapshot after every cache mutation
//   - Leaves cached state untouched when a fetch fails
//
// BatchFetcher is the bulk counterpart: it walks every page of a query with a
// bounded worker pool and returns all raw records in order.
package pagination
