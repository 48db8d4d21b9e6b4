package jellyfin

import (
	"context"
	"fmt"

	"github.com/Sternrassler/jellyfin-pager/pkg/pagination"
)

// Fetcher runs any listing query as a pagination.PageFetcher.
type Fetcher[Q Query[Q]] struct {
	api *API
}

// NewFetcher creates a page fetcher for query type Q.
func NewFetcher[Q Query[Q]](api *API) *Fetcher[Q] {
	return &Fetcher[Q]{api: api}
}

// Prepare implements pagination.PageFetcher.
func (f *Fetcher[Q]) Prepare(req Q, startIndex, limit int, enableTotalRecordCount bool) Q {
	return req.WithPaging(Paging{
		StartIndex:             startIndex,
		Limit:                  limit,
		EnableTotalRecordCount: enableTotalRecordCount,
	})
}

// Execute implements pagination.PageFetcher.
func (f *Fetcher[Q]) Execute(ctx context.Context, req Q) (pagination.PageResult[BaseItemDto], error) {
	path := req.Endpoint(f.api.userID)
	result, err := f.api.query(ctx, path, req.Values(f.api.userID))
	if err != nil {
		return pagination.PageResult[BaseItemDto]{}, fmt.Errorf("list %s: %w", path, err)
	}
	return pagination.PageResult[BaseItemDto]{
		Items:      result.Items,
		TotalCount: result.TotalRecordCount,
	}, nil
}

// FetchItem implements pagination.ItemFetcher.
func (f *Fetcher[Q]) FetchItem(ctx context.Context, id string) (BaseItemDto, error) {
	return f.api.FetchItem(ctx, id)
}

// NewList creates a paged list for query. Call Init before reading.
func NewList[Q Query[Q]](ctx context.Context, api *API, query Q, cfg pagination.Config) (*pagination.PagedList[Q, BaseItemDto, Item], error) {
	fetcher := NewFetcher[Q](api)
	return pagination.New(ctx, pagination.Source[Q, BaseItemDto, Item]{
		Request: query,
		Pages:   fetcher,
		Items:   fetcher,
		Mapper:  Mapper{},
	}, cfg)
}

// NewExporter creates a bulk fetcher for query.
func NewExporter[Q Query[Q]](api *API, cfg pagination.BatchConfig) *pagination.BatchFetcher[Q, BaseItemDto] {
	return pagination.NewBatchFetcher[Q, BaseItemDto](NewFetcher[Q](api), cfg)
}
