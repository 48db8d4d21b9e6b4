package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"golang.org/x/sync/singleflight"
)

// DefaultPageSize is the number of positions fetched per request by default.
const DefaultPageSize = 100

// Config holds paged list configuration.
type Config struct {
	// PageSize is the number of items requested per page.
	PageSize int

	// CacheCapacity is the number of pages kept in memory.
	CacheCapacity int

	// PreferSeriesGrouping is passed to the mapper in MapOptions.
	PreferSeriesGrouping bool

	// OnError receives failures of background fetches started by Get.
	// Failures are always logged; OnError is optional.
	OnError func(position int, err error)
}

// DefaultConfig returns the default paged list configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:      DefaultPageSize,
		CacheCapacity: DefaultCacheCapacity,
	}
}

// Source bundles the collaborators a PagedList reads through.
type Source[Req, Raw, Item any] struct {
	// Request is the query template shared by every page.
	Request Req

	// Pages executes page-scoped copies of Request. Required.
	Pages PageFetcher[Req, Raw]

	// Items loads single records for RefreshItem. Optional.
	Items ItemFetcher[Raw]

	// Mapper converts raw records to items. Required.
	Mapper ItemMapper[Raw, Item]
}

// PagedList is a random-access virtual list over a remote paginated query.
//
// Init must succeed before any positional access. Get never blocks; it
// schedules a background fetch for missing pages on the list's execution
// context. GetBlocking, Init and IndexOfBlocking wait for page fetches that
// are shared between callers and return as soon as the caller's context
// ends. RefreshItem runs its remote call under the caller's context.
type PagedList[Req, Raw, Item any] struct {
	source Source[Req, Raw, Item]
	config Config
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	// mu guards every read-modify-write of window and totalCount.
	mu         sync.Mutex
	window     *PageWindow[Item]
	totalCount int
	version    uint64

	flights   singleflight.Group
	launching sync.Map // page number -> struct{}

	snapshot atomic.Pointer[Snapshot[Item]]

	listenersMu  sync.RWMutex
	listeners    map[uint64]func(*Snapshot[Item])
	nextListener uint64
}

// New creates a cold PagedList. ctx is the execution context for background
// fetches; cancelling it (or calling Close) stops them.
func New[Req, Raw, Item any](ctx context.Context, src Source[Req, Raw, Item], cfg Config) (*PagedList[Req, Raw, Item], error) {
	if src.Pages == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}
	if src.Mapper == nil {
		return nil, fmt.Errorf("item mapper is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = DefaultCacheCapacity
	}

	window, err := NewPageWindow[Item](cfg.CacheCapacity)
	if err != nil {
		return nil, err
	}

	listCtx, cancel := context.WithCancel(ctx)

	l := &PagedList[Req, Raw, Item]{
		source:     src,
		config:     cfg,
		logger:     log.With().Str("component", "pager").Int("page_size", cfg.PageSize).Logger(),
		ctx:        listCtx,
		cancel:     cancel,
		window:     window,
		totalCount: unknownTotal,
		listeners:  make(map[uint64]func(*Snapshot[Item])),
	}
	l.snapshot.Store(&Snapshot[Item]{
		TotalCount: unknownTotal,
		PageSize:   cfg.PageSize,
		pages:      map[int][]Item{},
	})

	return l, nil
}

// Init fetches the page containing initialPosition together with the total
// count. Calling it again after success makes no request.
func (l *PagedList[Req, Raw, Item]) Init(ctx context.Context, initialPosition int) error {
	if l.TotalCount() != unknownTotal {
		return nil
	}
	if l.ctx.Err() != nil {
		return ErrClosed
	}
	if initialPosition < 0 {
		return &IndexError{Position: initialPosition, Size: 0}
	}

	if _, err := l.fetchPage(ctx, initialPosition, true); err != nil {
		return fmt.Errorf("init paged list: %w", err)
	}

	l.logger.Info().
		Int("total_count", l.TotalCount()).
		Int("initial_position", initialPosition).
		Msg("Paged list initialized")

	return nil
}

// Get returns the item at position if its page is cached. Otherwise it
// schedules a background fetch and returns ok == false, or ErrClosed once the
// list is closed.
func (l *PagedList[Req, Raw, Item]) Get(position int) (Item, bool, error) {
	var zero Item
	if err := l.checkBounds(position); err != nil {
		return zero, false, err
	}

	item, found, pageCached := l.lookup(position)
	if found || pageCached {
		return item, found, nil
	}

	if l.ctx.Err() != nil {
		return zero, false, ErrClosed
	}
	l.launch(position)
	return zero, false, nil
}

// GetBlocking returns the item at position, fetching its page first when
// needed. ok is false when the page holds fewer items than the position implies.
func (l *PagedList[Req, Raw, Item]) GetBlocking(ctx context.Context, position int) (Item, bool, error) {
	var zero Item
	if err := l.checkBounds(position); err != nil {
		return zero, false, err
	}

	item, found, pageCached := l.lookup(position)
	if found || pageCached {
		return item, found, nil
	}

	if l.ctx.Err() != nil {
		return zero, false, ErrClosed
	}

	page, err := l.fetchPage(ctx, position, false)
	if err != nil {
		return zero, false, err
	}

	index := position % l.config.PageSize
	if index >= len(page) {
		return zero, false, nil
	}
	return page[index], true, nil
}

// IndexOfBlocking returns the first position whose item satisfies predicate,
// fetching pages in order as it scans. It returns -1 when nothing matches or
// the scan reaches an absent position.
func (l *PagedList[Req, Raw, Item]) IndexOfBlocking(ctx context.Context, predicate func(Item) bool) (int, error) {
	if err := l.Init(ctx, 0); err != nil {
		return -1, err
	}

	total := l.TotalCount()
	for position := 0; position < total; position++ {
		item, ok, err := l.GetBlocking(ctx, position)
		if err != nil {
			return -1, err
		}
		if !ok {
			return -1, nil
		}
		if predicate(item) {
			return position, nil
		}
	}

	return -1, nil
}

// RefreshItem reloads one item by id and overwrites its slot if the page
// containing position is cached. Uncached pages and slots past the end of a
// page are left alone without error.
func (l *PagedList[Req, Raw, Item]) RefreshItem(ctx context.Context, position int, id string) error {
	if l.source.Items == nil {
		return ErrRefreshUnsupported
	}
	if position < 0 {
		return &IndexError{Position: position, Size: l.Len()}
	}
	if l.ctx.Err() != nil {
		return ErrClosed
	}

	raw, err := l.source.Items.FetchItem(ctx, id)
	if err != nil {
		ItemRefreshes.WithLabelValues("error").Inc()
		return fmt.Errorf("refresh item %s: %w", id, err)
	}
	item := l.source.Mapper.MapItem(raw, l.mapOptions())

	pageNumber := position / l.config.PageSize
	index := position % l.config.PageSize

	l.mu.Lock()
	page, ok := l.window.Peek(pageNumber)
	if !ok || index >= len(page) {
		l.mu.Unlock()
		ItemRefreshes.WithLabelValues("skipped").Inc()
		l.logger.Debug().
			Int("position", position).
			Str("item_id", id).
			Bool("page_cached", ok).
			Msg("Refresh skipped, slot not cached")
		return nil
	}

	updated := make([]Item, len(page))
	copy(updated, page)
	updated[index] = item
	l.window.Put(pageNumber, updated)
	snap := l.publishLocked()
	l.mu.Unlock()

	ItemRefreshes.WithLabelValues("applied").Inc()
	l.notify(snap)
	return nil
}

// Len returns the number of positions, 0 before Init.
func (l *PagedList[Req, Raw, Item]) Len() int {
	return l.snapshot.Load().Len()
}

// TotalCount returns the remote total, -1 before Init.
func (l *PagedList[Req, Raw, Item]) TotalCount() int {
	return l.snapshot.Load().TotalCount
}

// PageSize returns the configured page size.
func (l *PagedList[Req, Raw, Item]) PageSize() int {
	return l.config.PageSize
}

// Snapshot returns the most recently published snapshot.
func (l *PagedList[Req, Raw, Item]) Snapshot() *Snapshot[Item] {
	return l.snapshot.Load()
}

// Subscribe registers fn to receive every published snapshot. Snapshots may
// arrive out of order under concurrent fetches; compare Version to discard
// stale ones. The returned func removes the listener.
func (l *PagedList[Req, Raw, Item]) Subscribe(fn func(*Snapshot[Item])) func() {
	l.listenersMu.Lock()
	id := l.nextListener
	l.nextListener++
	l.listeners[id] = fn
	l.listenersMu.Unlock()

	return func() {
		l.listenersMu.Lock()
		delete(l.listeners, id)
		l.listenersMu.Unlock()
	}
}

// Close cancels background fetches and waits for them to finish.
func (l *PagedList[Req, Raw, Item]) Close() {
	l.cancel()
	if recovered := l.wg.WaitAndRecover(); recovered != nil {
		l.logger.Error().
			Interface("panic", recovered.Value).
			Msg("Background page fetch panicked")
	}
}

func (l *PagedList[Req, Raw, Item]) checkBounds(position int) error {
	total := l.TotalCount()
	if total == unknownTotal {
		return ErrNotInitialized
	}
	if position < 0 || position >= total {
		return &IndexError{Position: position, Size: total}
	}
	return nil
}

// lookup reads position from the window. pageCached reports whether the page
// is present even if it is too short to hold position.
func (l *PagedList[Req, Raw, Item]) lookup(position int) (item Item, found bool, pageCached bool) {
	page, ok := l.window.Get(position / l.config.PageSize)
	if !ok {
		CacheLookups.WithLabelValues("miss").Inc()
		return item, false, false
	}

	CacheLookups.WithLabelValues("hit").Inc()
	index := position % l.config.PageSize
	if index >= len(page) {
		return item, false, true
	}
	return page[index], true, true
}

// launch starts a fire-and-forget fetch for the page holding position unless
// one is already pending.
func (l *PagedList[Req, Raw, Item]) launch(position int) {
	if l.ctx.Err() != nil {
		return
	}

	pageNumber := position / l.config.PageSize
	if _, pending := l.launching.LoadOrStore(pageNumber, struct{}{}); pending {
		return
	}

	l.wg.Go(func() {
		defer l.launching.Delete(pageNumber)

		if _, err := l.fetchPage(l.ctx, position, false); err != nil {
			l.handleBackgroundError(position, err)
		}
	})
}

func (l *PagedList[Req, Raw, Item]) handleBackgroundError(position int, err error) {
	if l.ctx.Err() != nil && errors.Is(err, context.Canceled) {
		l.logger.Debug().Int("position", position).Msg("Background fetch cancelled")
		return
	}

	BackgroundErrors.Inc()
	l.logger.Warn().
		Err(err).
		Int("position", position).
		Msg("Background page fetch failed")

	if l.config.OnError != nil {
		l.config.OnError(position, err)
	}
}

// fetchPage makes sure the page containing position is cached and returns it.
// Concurrent callers for the same page share one flight. The flight keeps the
// values of the caller that started it and is cancelled only by Close.
func (l *PagedList[Req, Raw, Item]) fetchPage(ctx context.Context, position int, setTotalIfUnset bool) ([]Item, error) {
	pageNumber := position / l.config.PageSize
	key := fmt.Sprintf("%d:%t", pageNumber, setTotalIfUnset)

	ch := l.flights.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(l.ctx, cancel)
		defer stop()

		return l.loadPage(flightCtx, pageNumber, setTotalIfUnset)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Item), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *PagedList[Req, Raw, Item]) loadPage(ctx context.Context, pageNumber int, setTotalIfUnset bool) ([]Item, error) {
	// Re-check under the mutex: another flight may have stored the page
	// between the caller's lookup and this point.
	l.mu.Lock()
	needTotal := setTotalIfUnset && l.totalCount == unknownTotal
	if page, ok := l.window.Peek(pageNumber); ok && !needTotal {
		l.mu.Unlock()
		PageFetches.WithLabelValues("skipped").Inc()
		return page, nil
	}
	l.mu.Unlock()

	startIndex := pageNumber * l.config.PageSize
	req := l.source.Pages.Prepare(l.source.Request, startIndex, l.config.PageSize, setTotalIfUnset)

	l.logger.Debug().
		Int("page", pageNumber).
		Int("start_index", startIndex).
		Bool("total_count", setTotalIfUnset).
		Msg("Fetching page")

	began := time.Now()
	result, err := l.source.Pages.Execute(ctx, req)
	PageFetchDuration.Observe(time.Since(began).Seconds())
	if err != nil {
		PageFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch page %d: %w", pageNumber, err)
	}

	raws := result.Items
	if len(raws) > l.config.PageSize {
		raws = raws[:l.config.PageSize]
	}

	opts := l.mapOptions()
	page := make([]Item, 0, len(raws))
	for _, raw := range raws {
		page = append(page, l.source.Mapper.MapItem(raw, opts))
	}

	l.mu.Lock()
	if setTotalIfUnset {
		l.totalCount = max(0, result.TotalCount)
	}
	l.window.Put(pageNumber, page)
	snap := l.publishLocked()
	l.mu.Unlock()

	PageFetches.WithLabelValues("success").Inc()
	l.logger.Debug().
		Int("page", pageNumber).
		Int("items", len(page)).
		Int("total_count", snap.TotalCount).
		Dur("duration", time.Since(began)).
		Msg("Page stored")

	l.notify(snap)
	return page, nil
}

// publishLocked builds and stores a new snapshot. l.mu must be held.
func (l *PagedList[Req, Raw, Item]) publishLocked() *Snapshot[Item] {
	l.version++
	snap := &Snapshot[Item]{
		TotalCount: l.totalCount,
		PageSize:   l.config.PageSize,
		Version:    l.version,
		pages:      l.window.SnapshotAll(),
	}
	l.snapshot.Store(snap)
	return snap
}

func (l *PagedList[Req, Raw, Item]) notify(snap *Snapshot[Item]) {
	l.listenersMu.RLock()
	defer l.listenersMu.RUnlock()

	for _, fn := range l.listeners {
		fn(snap)
	}
}

func (l *PagedList[Req, Raw, Item]) mapOptions() MapOptions {
	return MapOptions{PreferSeriesGrouping: l.config.PreferSeriesGrouping}
}
