package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type fakeRequest struct {
	Filter     string
	StartIndex int
	Limit      int
	WithTotal  bool
}

type rawRecord struct {
	ID       string
	Name     string
	SeriesID string
}

type testItem struct {
	ID    string
	Name  string
	Group string
}

func mapRecord(raw rawRecord, opts MapOptions) testItem {
	group := raw.ID
	if opts.PreferSeriesGrouping && raw.SeriesID != "" {
		group = raw.SeriesID
	}
	return testItem{ID: raw.ID, Name: raw.Name, Group: group}
}

// fakeSource serves a fixed in-memory collection and records every call.
type fakeSource struct {
	mu sync.Mutex

	records []rawRecord
	// reportedTotal overrides len(records) when >= 0.
	reportedTotal int

	delay   time.Duration
	pageErr error
	itemErr error

	pageCalls  int
	totalCalls int
	itemCalls  int
	starts     []int
}

func newFakeSource(n int) *fakeSource {
	records := make([]rawRecord, n)
	for i := range records {
		records[i] = rawRecord{
			ID:       fmt.Sprintf("item-%d", i),
			Name:     fmt.Sprintf("Item %d", i),
			SeriesID: fmt.Sprintf("series-%d", i/5),
		}
	}
	return &fakeSource{records: records, reportedTotal: -1}
}

func (f *fakeSource) Prepare(req fakeRequest, startIndex, limit int, enableTotalRecordCount bool) fakeRequest {
	req.StartIndex = startIndex
	req.Limit = limit
	req.WithTotal = enableTotalRecordCount
	return req
}

func (f *fakeSource) Execute(ctx context.Context, req fakeRequest) (PageResult[rawRecord], error) {
	f.mu.Lock()
	f.pageCalls++
	if req.WithTotal {
		f.totalCalls++
	}
	f.starts = append(f.starts, req.StartIndex)
	delay := f.delay
	err := f.pageErr
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return PageResult[rawRecord]{}, ctx.Err()
		}
	}
	if err != nil {
		return PageResult[rawRecord]{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	end := min(req.StartIndex+req.Limit, len(f.records))
	var page []rawRecord
	if req.StartIndex < end {
		page = append(page, f.records[req.StartIndex:end]...)
	}

	total := len(f.records)
	if f.reportedTotal >= 0 {
		total = f.reportedTotal
	}
	if !req.WithTotal {
		total = 0
	}
	return PageResult[rawRecord]{Items: page, TotalCount: total}, nil
}

func (f *fakeSource) FetchItem(ctx context.Context, id string) (rawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.itemCalls++
	if f.itemErr != nil {
		return rawRecord{}, f.itemErr
	}
	for _, r := range f.records {
		if r.ID == id {
			r.Name += " (refreshed)"
			return r, nil
		}
	}
	return rawRecord{}, fmt.Errorf("item %s not found", id)
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSource) counts() (pages, totals, items int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageCalls, f.totalCalls, f.itemCalls
}

func (f *fakeSource) startIndexes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.starts...)
}
