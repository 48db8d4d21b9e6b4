package pagination

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// BatchConfig holds batch fetcher configuration
type BatchConfig struct {
	// MaxConcurrency is the maximum number of parallel page requests
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// PageSize is the number of items requested per page
	PageSize int
}

// DefaultBatchConfig returns safe default configuration for media servers
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		PageSize:       DefaultPageSize,
	}
}

// BatchFetcher walks every page of a query in parallel.
// It shares PageFetcher with PagedList but keeps nothing cached.
type BatchFetcher[Req, Raw any] struct {
	fetcher PageFetcher[Req, Raw]
	config  BatchConfig
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[Req, Raw any](fetcher PageFetcher[Req, Raw], config BatchConfig) *BatchFetcher[Req, Raw] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}

	return &BatchFetcher[Req, Raw]{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches every record matched by request, in server order.
// The first page is fetched alone to learn the total count; the remaining
// pages are fetched by a bounded worker pool. Any page error aborts the batch.
func (bf *BatchFetcher[Req, Raw]) FetchAll(ctx context.Context, request Req) ([]Raw, error) {
	start := time.Now()
	pageSize := bf.config.PageSize

	first, err := bf.fetchPage(ctx, request, 0, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	total := max(0, first.TotalCount)
	totalPages := (total + pageSize - 1) / pageSize

	log.Info().
		Int("total_count", total).
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	// Single page optimization
	if totalPages <= 1 {
		log.Info().
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return first.Items, nil
	}

	pages := make([][]Raw, totalPages)
	pages[0] = first.Items

	var fetched atomic.Int32
	fetched.Store(1)

	p := pool.New().
		WithMaxGoroutines(bf.config.MaxConcurrency).
		WithErrors().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for pageNumber := 1; pageNumber < totalPages; pageNumber++ {
		p.Go(func(ctx context.Context) error {
			result, err := bf.fetchPage(ctx, request, pageNumber*pageSize, false)
			if err != nil {
				log.Warn().
					Err(err).
					Int("page", pageNumber).
					Msg("Page fetch failed")
				return fmt.Errorf("page %d: %w", pageNumber, err)
			}

			pages[pageNumber] = result.Items

			// Progress logging every 50 pages
			if n := fetched.Add(1); n%50 == 0 {
				log.Info().
					Int32("fetched", n).
					Int("total", totalPages).
					Float64("progress_pct", float64(n)/float64(totalPages)*100).
					Msg("Fetch progress")
			}
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("batch fetch (%d/%d pages): %w", fetched.Load(), totalPages, err)
	}

	items := make([]Raw, 0, total)
	for _, page := range pages {
		items = append(items, page...)
	}

	log.Info().
		Int("pages", totalPages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}

func (bf *BatchFetcher[Req, Raw]) fetchPage(ctx context.Context, request Req, startIndex int, withTotal bool) (PageResult[Raw], error) {
	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	req := bf.fetcher.Prepare(request, startIndex, bf.config.PageSize, withTotal)
	return bf.fetcher.Execute(pageCtx, req)
}
