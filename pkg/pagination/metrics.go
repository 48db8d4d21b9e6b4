package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PageFetches counts page fetch decisions by result ("success", "error", "skipped").
	PageFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pager_page_fetches_total",
			Help: "Total number of page fetches by result",
		},
		[]string{"result"},
	)

	// PageFetchDuration observes remote page round trips.
	PageFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pager_page_fetch_duration_seconds",
			Help:    "Duration of remote page fetches in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	// CacheLookups counts positional reads by result ("hit", "miss").
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pager_cache_lookups_total",
			Help: "Total number of page window lookups by result",
		},
		[]string{"result"},
	)

	// PageEvictions counts pages dropped from a window by LRU pressure.
	PageEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pager_page_evictions_total",
			Help: "Total number of pages evicted from page windows",
		},
	)

	// ItemRefreshes counts single-item refreshes by result ("applied", "skipped", "error").
	ItemRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pager_item_refreshes_total",
			Help: "Total number of single item refreshes by result",
		},
		[]string{"result"},
	)

	// BackgroundErrors counts failed fire-and-forget page fetches.
	BackgroundErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pager_background_errors_total",
			Help: "Total number of failed background page fetches",
		},
	)
)
