package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/jellyfin-pager/pkg/client"
	"github.com/Sternrassler/jellyfin-pager/pkg/logging"
	"github.com/Sternrassler/jellyfin-pager/pkg/metrics"
	"github.com/Sternrassler/jellyfin-pager/pkg/pagination"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/singleflight"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   "Serve lists over HTTP",
		PreRunE: c.load,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := newServer(ctx, a, c.cfg.Serve.MaxLists)
			if err != nil {
				return err
			}
			defer s.Close()

			return s.ListenAndServe(ctx, c.cfg.Serve.Listen)
		},
	}
}

// server exposes lists over HTTP. Opened lists are kept in an LRU keyed by
// selector and closed on eviction.
type server struct {
	ctx    context.Context
	app    *app
	lists  *lru.Cache[string, view]
	opens  singleflight.Group
	logger zerolog.Logger
}

func newServer(ctx context.Context, a *app, maxLists int) (*server, error) {
	s := &server{
		ctx:    ctx,
		app:    a,
		logger: logging.NewLogger(logging.ComponentServer),
	}

	lists, err := lru.NewWithEvict[string, view](maxLists, func(key string, v view) {
		v.Close()
		s.logger.Debug().Str("list", key).Msg("List closed")
	})
	if err != nil {
		return nil, fmt.Errorf("list cache: %w", err)
	}
	s.lists = lists

	return s, nil
}

// Close closes every open list.
func (s *server) Close() {
	s.lists.Purge()
}

// ListenAndServe serves until ctx is cancelled.
func (s *server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info().Msg("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/lists/{kind}", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/lists/{kind}/{index:[0-9]+}", s.handleEntry).Methods(http.MethodGet)
	r.HandleFunc("/lists/{kind}/{index:[0-9]+}/refresh", s.handleRefresh).Methods(http.MethodPost)

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.app.redis != nil {
		if err := s.app.redis.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

type listResponse struct {
	Kind       string `json:"kind"`
	TotalCount int    `json:"total_count"`
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	sel := selectorFromRequest(r)

	v, err := s.list(r.Context(), sel, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Kind: sel.Kind, TotalCount: v.TotalCount()})
}

type entryResponse struct {
	Position   int    `json:"position"`
	TotalCount int    `json:"total_count"`
	Status     string `json:"status"`
	Entry      *entry `json:"entry,omitempty"`
}

// handleEntry never waits for a page fetch: an uncached position starts a
// background fetch and answers 202 with status pending.
func (s *server) handleEntry(w http.ResponseWriter, r *http.Request) {
	position, _ := strconv.Atoi(mux.Vars(r)["index"])

	var resp entryResponse
	err := s.withList(r.Context(), selectorFromRequest(r), position, func(v view) error {
		e, ok, err := v.Entry(position)
		if err != nil {
			return err
		}

		resp = entryResponse{Position: position, TotalCount: v.TotalCount(), Status: "pending"}
		if ok {
			resp.Status = "ok"
			resp.Entry = &e
		}
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	if resp.Entry == nil {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	position, _ := strconv.Atoi(mux.Vars(r)["index"])

	err := s.withList(r.Context(), selectorFromRequest(r), position, func(v view) error {
		return v.Refresh(r.Context(), position)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// list returns the open list for sel, opening and initializing it at
// position on first use. Concurrent first uses share one Init, which runs
// under the server context; each caller stops waiting when its own ctx ends.
func (s *server) list(ctx context.Context, sel selector, position int) (view, error) {
	key := sel.key()
	if v, ok := s.lists.Get(key); ok {
		return v, nil
	}

	ch := s.opens.DoChan(key, func() (any, error) {
		if v, ok := s.lists.Get(key); ok {
			return v, nil
		}

		v, err := s.app.open(s.ctx, sel)
		if err != nil {
			return nil, err
		}
		if err := v.Init(s.ctx, position); err != nil {
			v.Close()
			return nil, err
		}

		s.lists.Add(key, v)
		s.logger.Debug().
			Str("list", key).
			Int("total_count", v.TotalCount()).
			Msg("List opened")
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(view), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// withList runs fn on the open list for sel. A list closed by eviction while
// fn was using it is dropped and fn runs once more on a reopened list.
func (s *server) withList(ctx context.Context, sel selector, position int, fn func(view) error) error {
	for attempt := 0; ; attempt++ {
		v, err := s.list(ctx, sel, position)
		if err != nil {
			return err
		}

		err = fn(v)
		if !errors.Is(err, pagination.ErrClosed) || attempt > 0 {
			return err
		}

		if cur, ok := s.lists.Peek(sel.key()); ok && cur == v {
			s.lists.Remove(sel.key())
		}
		s.logger.Debug().Str("list", sel.key()).Msg("Reopening closed list")
	}
}

func selectorFromRequest(r *http.Request) selector {
	q := r.URL.Query()
	return selector{
		Kind:   mux.Vars(r)["kind"],
		Parent: q.Get("parent"),
		Search: q.Get("search"),
		Filter: q.Get("filter"),
		Types:  q["types"],
	}
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, errUnknownKind):
		status = http.StatusBadRequest
	case errors.Is(err, pagination.ErrIndexOutOfRange),
		errors.Is(err, errJellyfinDisabled),
		errors.Is(err, errSeerrDisabled),
		client.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, client.ErrBackpressure):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		status = http.StatusRequestTimeout
	}

	if status >= http.StatusInternalServerError {
		s.logger.Warn().Err(err).Int("status", status).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
