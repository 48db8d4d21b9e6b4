// Package testutil provides a mock media server (Jellyfin and Seerr routes)
// for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// MockResponse defines a canned response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockItem is the JSON shape of a Jellyfin item served by the mock.
type MockItem struct {
	ID                string         `json:"Id"`
	Name              string         `json:"Name"`
	Type              string         `json:"Type"`
	SeriesID          string         `json:"SeriesId,omitempty"`
	SeriesName        string         `json:"SeriesName,omitempty"`
	ParentIndexNumber *int           `json:"ParentIndexNumber,omitempty"`
	IndexNumber       *int           `json:"IndexNumber,omitempty"`
	ProductionYear    int            `json:"ProductionYear,omitempty"`
	RunTimeTicks      int64          `json:"RunTimeTicks,omitempty"`
	UserData          map[string]any `json:"UserData,omitempty"`
}

// MockRequest is the JSON shape of a Seerr media request served by the mock.
type MockRequest struct {
	ID          int            `json:"id"`
	Status      int            `json:"status"`
	CreatedAt   string         `json:"createdAt"`
	Type        string         `json:"type"`
	Is4K        bool           `json:"is4k"`
	Media       map[string]any `json:"media"`
	RequestedBy map[string]any `json:"requestedBy"`
}

// MockServer is a configurable mock Jellyfin/Seerr server.
type MockServer struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	items    []MockItem
	requests []MockRequest

	delay    time.Duration
	failures int
	failCode int

	// Tracking
	RequestCount      int
	ListCount         int
	ConditionalCount  int
	StartIndexes      []int
	LastRequestHeader http.Header
}

// NewMockServer creates a mock server with a generated catalog of
// itemCount items. Every fifth run of items belongs to one series.
func NewMockServer(itemCount int) *MockServer {
	mock := &MockServer{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		items:    GenerateItems(itemCount),
		requests: GenerateRequests(itemCount),
	}

	router := mux.NewRouter()
	router.HandleFunc("/Users/{userId}/Items/Resume", mock.listHandler).Methods(http.MethodGet)
	router.HandleFunc("/Users/{userId}/Items/{itemId}", mock.itemHandler).Methods(http.MethodGet)
	router.HandleFunc("/Users/{userId}/Items", mock.listHandler).Methods(http.MethodGet)
	router.HandleFunc("/Shows/{seriesId}/Episodes", mock.listHandler).Methods(http.MethodGet)
	router.HandleFunc("/Shows/NextUp", mock.listHandler).Methods(http.MethodGet)
	router.HandleFunc("/Playlists/{playlistId}/Items", mock.listHandler).Methods(http.MethodGet)
	router.HandleFunc("/Genres", mock.listHandler).Methods(http.MethodGet)
	router.HandleFunc("/Persons", mock.listHandler).Methods(http.MethodGet)
	router.HandleFunc("/LiveTv/Programs", mock.listHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/request", mock.seerrListHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/request/{requestId:[0-9]+}", mock.seerrItemHandler).Methods(http.MethodGet)

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		delay := mock.delay
		fail := 0
		if mock.failures > 0 {
			mock.failures--
			fail = mock.failCode
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if fail != 0 {
			http.Error(w, http.StatusText(fail), fail)
			return
		}

		if exists {
			handler(w, r)
			return
		}

		router.ServeHTTP(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ListCount = 0
	m.ConditionalCount = 0
	m.StartIndexes = nil
	m.LastRequestHeader = nil
}

// SetHandler overrides the handler for an exact path.
func (m *MockServer) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockServer) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetDelay delays every response.
func (m *MockServer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// FailNext makes the next n requests fail with status.
func (m *MockServer) FailNext(n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.failCode = status
}

// RenameItem changes the name of the item with id.
func (m *MockServer) RenameItem(id, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Name = name
			return true
		}
	}
	return false
}

// Items returns a copy of the catalog.
func (m *MockServer) Items() []MockItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]MockItem(nil), m.items...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockServer) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetListCount returns the number of listing requests.
func (m *MockServer) GetListCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ListCount
}

// GetStartIndexes returns the StartIndex (or skip) of every listing request.
func (m *MockServer) GetStartIndexes() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.StartIndexes...)
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockServer) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

func (m *MockServer) listHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, _ := strconv.Atoi(q.Get("StartIndex"))
	limit, err := strconv.Atoi(q.Get("Limit"))
	if err != nil || limit <= 0 {
		limit = len(m.Items())
	}
	withTotal := q.Get("EnableTotalRecordCount") != "false"

	m.mu.Lock()
	m.ListCount++
	m.StartIndexes = append(m.StartIndexes, start)
	items := filterItems(m.items, q.Get("SearchTerm"))
	page := window(items, start, limit)
	m.mu.Unlock()

	total := 0
	if withTotal {
		total = len(items)
	}

	writeJSON(w, map[string]any{
		"Items":            page,
		"TotalRecordCount": total,
		"StartIndex":       start,
	})
}

func (m *MockServer) itemHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["itemId"]
	for _, item := range m.Items() {
		if item.ID == id {
			writeJSON(w, item)
			return
		}
	}
	http.Error(w, "Item not found", http.StatusNotFound)
}

func (m *MockServer) seerrListHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip, _ := strconv.Atoi(q.Get("skip"))
	take, err := strconv.Atoi(q.Get("take"))
	if err != nil || take <= 0 {
		take = 20
	}

	m.mu.Lock()
	m.ListCount++
	m.StartIndexes = append(m.StartIndexes, skip)
	requests := m.requests
	if filter := q.Get("filter"); filter == "pending" {
		requests = nil
		for _, req := range m.requests {
			if req.Status == 1 {
				requests = append(requests, req)
			}
		}
	}
	page := window(requests, skip, take)
	m.mu.Unlock()

	writeJSON(w, map[string]any{
		"pageInfo": map[string]int{
			"pages":    (len(requests) + take - 1) / take,
			"pageSize": take,
			"results":  len(requests),
			"page":     skip/take + 1,
		},
		"results": page,
	})
}

func (m *MockServer) seerrItemHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["requestId"])
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, req := range m.requests {
		if req.ID == id {
			writeJSON(w, req)
			return
		}
	}
	http.Error(w, `{"message":"Request not found."}`, http.StatusNotFound)
}

// GenerateItems builds a deterministic catalog. Ids are 32 hex digits like
// Jellyfin's.
func GenerateItems(n int) []MockItem {
	items := make([]MockItem, n)
	for i := range items {
		season, episode := 1, i%5+1
		series := i / 5
		items[i] = MockItem{
			ID:                ItemID(i),
			Name:              fmt.Sprintf("Episode %d", i),
			Type:              "Episode",
			SeriesID:          fmt.Sprintf("%032x", 0xa0000+series),
			SeriesName:        fmt.Sprintf("Series %d", series),
			ParentIndexNumber: &season,
			IndexNumber:       &episode,
			ProductionYear:    2000 + i%25,
			RunTimeTicks:      int64(22*time.Minute) / 100,
			UserData: map[string]any{
				"Played":                i%3 == 0,
				"IsFavorite":            i%7 == 0,
				"PlayCount":             i % 3,
				"PlaybackPositionTicks": 0,
			},
		}
	}
	return items
}

// ItemID returns the id of the i-th generated item.
func ItemID(i int) string {
	return fmt.Sprintf("%032x", i+1)
}

// GenerateRequests builds n Seerr requests; every other one is pending.
func GenerateRequests(n int) []MockRequest {
	requests := make([]MockRequest, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range requests {
		status := 2
		if i%2 == 0 {
			status = 1
		}
		requests[i] = MockRequest{
			ID:        i + 1,
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
			Type:      "movie",
			Media: map[string]any{
				"id":     100 + i,
				"tmdbId": 5000 + i,
				"status": 2,
			},
			RequestedBy: map[string]any{
				"id":          1 + i%3,
				"displayName": fmt.Sprintf("user%d", 1+i%3),
			},
		}
	}
	return requests
}

func filterItems(items []MockItem, term string) []MockItem {
	if term == "" {
		return items
	}
	var out []MockItem
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), strings.ToLower(term)) {
			out = append(out, item)
		}
	}
	return out
}

func window[T any](all []T, start, limit int) []T {
	if start >= len(all) || start < 0 {
		return []T{}
	}
	end := min(start+limit, len(all))
	return append([]T(nil), all[start:end]...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(v)
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotModified,
	}
}

// NewBackpressureResponse creates a 429 with a Retry-After hint.
func NewBackpressureResponse(retryAfter time.Duration) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Too many requests"}`,
		Headers: map[string]string{
			"Retry-After":  strconv.Itoa(int(retryAfter.Seconds())),
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
