// Package seerr adapts the Seerr (Jellyseerr/Overseerr) request list to
// the pagination package.
package seerr

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/jellyfin-pager/pkg/client"
	"github.com/Sternrassler/jellyfin-pager/pkg/logging"
	"github.com/Sternrassler/jellyfin-pager/pkg/pagination"
	"github.com/rs/zerolog"
)

// TokenHeader is the header Seerr reads API keys from.
const TokenHeader = "X-Api-Key"

// DefaultClientConfig returns a client configuration for a Seerr server.
func DefaultClientConfig(baseURL, apiKey string) client.Config {
	cfg := client.DefaultConfig(baseURL, apiKey)
	cfg.TokenHeader = TokenHeader
	cfg.Namespace = "seerr"
	return cfg
}

// API talks to one Seerr server.
type API struct {
	client *client.Client
	logger zerolog.Logger
}

// NewAPI wraps c.
func NewAPI(c *client.Client) (*API, error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	return &API{
		client: c,
		logger: logging.NewLogger(logging.ComponentSeerr),
	}, nil
}

// Prepare implements pagination.PageFetcher. Seerr always reports the
// total, so enableTotalRecordCount is not forwarded.
func (a *API) Prepare(req RequestsQuery, startIndex, limit int, enableTotalRecordCount bool) RequestsQuery {
	req.Skip = startIndex
	req.Take = limit
	return req
}

// Execute implements pagination.PageFetcher.
func (a *API) Execute(ctx context.Context, req RequestsQuery) (pagination.PageResult[MediaRequestDto], error) {
	var resp RequestsResponse
	if err := a.client.GetJSON(ctx, "/api/v1/request", req.Values(), &resp); err != nil {
		return pagination.PageResult[MediaRequestDto]{}, fmt.Errorf("list requests: %w", err)
	}

	a.logger.Trace().
		Int("skip", req.Skip).
		Int("results", len(resp.Results)).
		Int("total_count", resp.PageInfo.Results).
		Msg("Requests fetched")

	return pagination.PageResult[MediaRequestDto]{
		Items:      resp.Results,
		TotalCount: resp.PageInfo.Results,
	}, nil
}

// FetchItem implements pagination.ItemFetcher. Request ids are numeric.
// A successful fetch drops the cached request listings.
func (a *API) FetchItem(ctx context.Context, id string) (MediaRequestDto, error) {
	n, err := strconv.Atoi(id)
	if err != nil || n <= 0 {
		return MediaRequestDto{}, fmt.Errorf("invalid request id %q", id)
	}

	var req MediaRequestDto
	if err := a.client.GetJSON(ctx, "/api/v1/request/"+id, nil, &req, client.WithNoCache()); err != nil {
		return MediaRequestDto{}, fmt.Errorf("fetch request %d: %w", n, err)
	}

	if _, err := a.client.InvalidateCache(ctx); err != nil {
		a.logger.Warn().Err(err).Int("request_id", n).Msg("Failed to invalidate cached listings")
	}
	return req, nil
}

// NewList creates a paged list of media requests. Call Init before reading.
func NewList(ctx context.Context, api *API, query RequestsQuery, cfg pagination.Config) (*pagination.PagedList[RequestsQuery, MediaRequestDto, Request], error) {
	return pagination.New(ctx, pagination.Source[RequestsQuery, MediaRequestDto, Request]{
		Request: query,
		Pages:   api,
		Items:   api,
		Mapper:  pagination.MapperFunc[MediaRequestDto, Request](MapRequest),
	}, cfg)
}

// RequestsQuery filters the request list.
type RequestsQuery struct {
	// Filter is one of all, approved, available, pending, processing,
	// unavailable, failed. Empty means all.
	Filter string

	// Sort is added or modified. Empty means added.
	Sort string

	// RequestedBy limits to one Seerr user id when > 0.
	RequestedBy int

	Take int
	Skip int
}

// Values builds the query string.
func (q RequestsQuery) Values() url.Values {
	v := url.Values{}
	v.Set("take", strconv.Itoa(q.Take))
	v.Set("skip", strconv.Itoa(q.Skip))
	if q.Filter != "" {
		v.Set("filter", q.Filter)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.RequestedBy > 0 {
		v.Set("requestedBy", strconv.Itoa(q.RequestedBy))
	}
	return v
}

// RequestsResponse is the envelope of GET /api/v1/request.
type RequestsResponse struct {
	PageInfo PageInfo          `json:"pageInfo"`
	Results  []MediaRequestDto `json:"results"`
}

// PageInfo describes the server side page.
type PageInfo struct {
	Pages    int `json:"pages"`
	PageSize int `json:"pageSize"`
	Results  int `json:"results"`
	Page     int `json:"page"`
}

// MediaRequestDto is a raw Seerr media request.
type MediaRequestDto struct {
	ID          int          `json:"id"`
	Status      int          `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Type        string       `json:"type"`
	Is4K        bool         `json:"is4k"`
	Media       MediaInfoDto `json:"media"`
	RequestedBy UserDto      `json:"requestedBy"`
}

// MediaInfoDto is the media a request refers to.
type MediaInfoDto struct {
	ID     int `json:"id"`
	TMDBID int `json:"tmdbId"`
	TVDBID int `json:"tvdbId,omitempty"`
	Status int `json:"status"`
}

// UserDto is the requesting user.
type UserDto struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
}
