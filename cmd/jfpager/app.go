package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sternrassler/jellyfin-pager/pkg/client"
	"github.com/Sternrassler/jellyfin-pager/pkg/jellyfin"
	"github.com/Sternrassler/jellyfin-pager/pkg/logging"
	"github.com/Sternrassler/jellyfin-pager/pkg/pagination"
	"github.com/Sternrassler/jellyfin-pager/pkg/seerr"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// List kinds accepted by every command.
const (
	kindItems    = "items"
	kindEpisodes = "episodes"
	kindResume   = "resume"
	kindNextUp   = "nextup"
	kindPlaylist = "playlist"
	kindGenres   = "genres"
	kindPersons  = "persons"
	kindPrograms = "programs"
	kindRequests = "requests"
)

var (
	errJellyfinDisabled = errors.New("jellyfin server not configured")
	errSeerrDisabled    = errors.New("seerr server not configured")
	errUnknownKind      = errors.New("unknown list kind")
)

// selector identifies one remote list.
type selector struct {
	Kind   string
	Parent string
	Search string
	Filter string
	Types  []string
}

func (s selector) key() string {
	return strings.Join([]string{s.Kind, s.Parent, s.Search, s.Filter, strings.Join(s.Types, ",")}, "|")
}

// entry is the printable form of one list position.
type entry struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Group    string `json:"group,omitempty"`
	Status   string `json:"status,omitempty"`
	Played   bool   `json:"played,omitempty"`
}

func itemEntry(item jellyfin.Item) entry {
	return entry{
		ID:     item.RawID,
		Title:  item.Title(),
		Kind:   item.Kind,
		Group:  jellyfin.FormatID(item.GroupingID),
		Played: item.Played,
	}
}

func requestEntry(r seerr.Request) entry {
	title := fmt.Sprintf("%s tmdb:%d", r.Type, r.TMDBID)
	if r.Is4K {
		title += " 4K"
	}
	if r.RequestedBy != "" {
		title += " by " + r.RequestedBy
	}
	return entry{
		ID:     strconv.Itoa(r.ID),
		Title:  title,
		Kind:   "request",
		Group:  r.GroupingID,
		Status: r.Status.String(),
	}
}

// view hides the type parameters of a PagedList from the commands.
type view interface {
	Init(ctx context.Context, position int) error
	TotalCount() int
	Close()
	Entry(position int) (entry, bool, error)
	EntryBlocking(ctx context.Context, position int) (entry, bool, error)
	Find(ctx context.Context, text string) (int, error)
	Refresh(ctx context.Context, position int) error
}

type pagedView[Req, Raw, Item any] struct {
	*pagination.PagedList[Req, Raw, Item]
	render func(Item) entry
}

func (v *pagedView[Req, Raw, Item]) Entry(position int) (entry, bool, error) {
	item, ok, err := v.Get(position)
	if err != nil || !ok {
		return entry{}, ok, err
	}
	e := v.render(item)
	e.Position = position
	return e, true, nil
}

func (v *pagedView[Req, Raw, Item]) EntryBlocking(ctx context.Context, position int) (entry, bool, error) {
	item, ok, err := v.GetBlocking(ctx, position)
	if err != nil || !ok {
		return entry{}, ok, err
	}
	e := v.render(item)
	e.Position = position
	return e, true, nil
}

// Find returns the first position whose title contains text, ignoring case.
func (v *pagedView[Req, Raw, Item]) Find(ctx context.Context, text string) (int, error) {
	needle := strings.ToLower(text)
	return v.IndexOfBlocking(ctx, func(item Item) bool {
		return strings.Contains(strings.ToLower(v.render(item).Title), needle)
	})
}

// Refresh reloads the item currently shown at position.
func (v *pagedView[Req, Raw, Item]) Refresh(ctx context.Context, position int) error {
	e, ok, err := v.EntryBlocking(ctx, position)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("position %d has no item", position)
	}
	return v.RefreshItem(ctx, position, e.ID)
}

func jellyfinView[Q jellyfin.Query[Q]](ctx context.Context, api *jellyfin.API, query Q, cfg pagination.Config) (view, error) {
	list, err := jellyfin.NewList(ctx, api, query, cfg)
	if err != nil {
		return nil, err
	}
	return &pagedView[Q, jellyfin.BaseItemDto, jellyfin.Item]{PagedList: list, render: itemEntry}, nil
}

func jellyfinExport[Q jellyfin.Query[Q]](ctx context.Context, api *jellyfin.API, query Q, cfg pagination.BatchConfig, opts pagination.MapOptions, w io.Writer) (int, error) {
	raws, err := jellyfin.NewExporter[Q](api, cfg).FetchAll(ctx, query)
	if err != nil {
		return 0, err
	}
	mapper := jellyfin.Mapper{}
	return writeEntries(w, raws, func(raw jellyfin.BaseItemDto) entry {
		return itemEntry(mapper.MapItem(raw, opts))
	})
}

// writeEntries writes one JSON object per line.
func writeEntries[Raw any](w io.Writer, raws []Raw, render func(Raw) entry) (int, error) {
	enc := json.NewEncoder(w)
	for i, raw := range raws {
		e := render(raw)
		e.Position = i
		if err := enc.Encode(e); err != nil {
			return i, fmt.Errorf("write entry %d: %w", i, err)
		}
	}
	return len(raws), nil
}

// app owns the remote connections shared by all commands.
type app struct {
	cfg    *Config
	redis  *redis.Client
	jf     *jellyfin.API
	seerr  *seerr.API
	closer []func() error
	logger zerolog.Logger
}

func newApp(ctx context.Context, cfg *Config) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logging.NewLogger(logging.ComponentCLI),
	}

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closer = append(a.closer, a.redis.Close)

		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	if cfg.Jellyfin.URL != "" {
		cc := client.DefaultConfig(cfg.Jellyfin.URL, cfg.Jellyfin.Token)
		cc.UserID = cfg.Jellyfin.UserID
		cc.Timeout = cfg.Jellyfin.Timeout
		cc.MaxRetries = cfg.Jellyfin.MaxRetries

		c, err := a.newClient(cc)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("jellyfin client: %w", err)
		}
		if a.jf, err = jellyfin.NewAPI(c, cfg.Jellyfin.UserID); err != nil {
			a.Close()
			return nil, err
		}
	}

	if cfg.Seerr.URL != "" {
		cc := seerr.DefaultClientConfig(cfg.Seerr.URL, cfg.Seerr.APIKey)
		cc.Timeout = cfg.Seerr.Timeout
		cc.MaxRetries = cfg.Seerr.MaxRetries

		c, err := a.newClient(cc)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("seerr client: %w", err)
		}
		if a.seerr, err = seerr.NewAPI(c); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

// newClient attaches the shared Redis cache to cc and registers the client
// for Close.
func (a *app) newClient(cc client.Config) (*client.Client, error) {
	cc.Redis = a.redis
	cc.ResponseCacheTTL = a.cfg.Redis.CacheTTL

	c, err := client.New(cc)
	if err != nil {
		return nil, err
	}
	a.closer = append(a.closer, c.Close)
	return c, nil
}

// Close releases clients in reverse creation order.
func (a *app) Close() {
	for i := len(a.closer) - 1; i >= 0; i-- {
		if err := a.closer[i](); err != nil {
			a.logger.Warn().Err(err).Msg("Close failed")
		}
	}
	a.closer = nil
}

// open creates an uninitialized view for sel.
func (a *app) open(ctx context.Context, sel selector) (view, error) {
	cfg := a.cfg.pagerConfig()

	if sel.Kind == kindRequests {
		if a.seerr == nil {
			return nil, errSeerrDisabled
		}
		list, err := seerr.NewList(ctx, a.seerr, sel.requestsQuery(), cfg)
		if err != nil {
			return nil, err
		}
		return &pagedView[seerr.RequestsQuery, seerr.MediaRequestDto, seerr.Request]{PagedList: list, render: requestEntry}, nil
	}

	if a.jf == nil {
		return nil, errJellyfinDisabled
	}

	switch sel.Kind {
	case kindItems:
		return jellyfinView(ctx, a.jf, sel.itemsQuery(), cfg)
	case kindEpisodes:
		return jellyfinView(ctx, a.jf, jellyfin.EpisodesQuery{SeriesID: sel.Parent}, cfg)
	case kindResume:
		return jellyfinView(ctx, a.jf, jellyfin.ResumeQuery{ParentID: sel.Parent}, cfg)
	case kindNextUp:
		return jellyfinView(ctx, a.jf, jellyfin.NextUpQuery{SeriesID: sel.Parent}, cfg)
	case kindPlaylist:
		return jellyfinView(ctx, a.jf, jellyfin.PlaylistItemsQuery{PlaylistID: sel.Parent}, cfg)
	case kindGenres:
		return jellyfinView(ctx, a.jf, jellyfin.GenresQuery{ParentID: sel.Parent, IncludeItemTypes: sel.Types}, cfg)
	case kindPersons:
		return jellyfinView(ctx, a.jf, jellyfin.PersonsQuery{SearchTerm: sel.Search}, cfg)
	case kindPrograms:
		return jellyfinView(ctx, a.jf, sel.programsQuery(), cfg)
	}
	return nil, fmt.Errorf("%w %q", errUnknownKind, sel.Kind)
}

// export writes every entry of sel as JSON lines and returns the count.
func (a *app) export(ctx context.Context, sel selector, w io.Writer) (int, error) {
	cfg := a.cfg.batchConfig()
	opts := pagination.MapOptions{PreferSeriesGrouping: a.cfg.Pager.SeriesGrouping}

	if sel.Kind == kindRequests {
		if a.seerr == nil {
			return 0, errSeerrDisabled
		}
		raws, err := pagination.NewBatchFetcher[seerr.RequestsQuery, seerr.MediaRequestDto](a.seerr, cfg).FetchAll(ctx, sel.requestsQuery())
		if err != nil {
			return 0, err
		}
		return writeEntries(w, raws, func(raw seerr.MediaRequestDto) entry {
			return requestEntry(seerr.MapRequest(raw, opts))
		})
	}

	if a.jf == nil {
		return 0, errJellyfinDisabled
	}

	switch sel.Kind {
	case kindItems:
		return jellyfinExport(ctx, a.jf, sel.itemsQuery(), cfg, opts, w)
	case kindEpisodes:
		return jellyfinExport(ctx, a.jf, jellyfin.EpisodesQuery{SeriesID: sel.Parent}, cfg, opts, w)
	case kindResume:
		return jellyfinExport(ctx, a.jf, jellyfin.ResumeQuery{ParentID: sel.Parent}, cfg, opts, w)
	case kindNextUp:
		return jellyfinExport(ctx, a.jf, jellyfin.NextUpQuery{SeriesID: sel.Parent}, cfg, opts, w)
	case kindPlaylist:
		return jellyfinExport(ctx, a.jf, jellyfin.PlaylistItemsQuery{PlaylistID: sel.Parent}, cfg, opts, w)
	case kindGenres:
		return jellyfinExport(ctx, a.jf, jellyfin.GenresQuery{ParentID: sel.Parent, IncludeItemTypes: sel.Types}, cfg, opts, w)
	case kindPersons:
		return jellyfinExport(ctx, a.jf, jellyfin.PersonsQuery{SearchTerm: sel.Search}, cfg, opts, w)
	case kindPrograms:
		return jellyfinExport(ctx, a.jf, sel.programsQuery(), cfg, opts, w)
	}
	return 0, fmt.Errorf("%w %q", errUnknownKind, sel.Kind)
}

func (s selector) itemsQuery() jellyfin.ItemsQuery {
	return jellyfin.ItemsQuery{
		ParentID:         s.Parent,
		IncludeItemTypes: s.Types,
		Recursive:        true,
		SortBy:           []string{"SortName"},
		SortOrder:        "Ascending",
		SearchTerm:       s.Search,
	}
}

func (s selector) programsQuery() jellyfin.ProgramsQuery {
	q := jellyfin.ProgramsQuery{}
	if s.Parent != "" {
		q.ChannelIDs = strings.Split(s.Parent, ",")
	}
	if s.Filter == "airing" {
		airing := true
		q.IsAiring = &airing
	}
	return q
}

func (s selector) requestsQuery() seerr.RequestsQuery {
	return seerr.RequestsQuery{Filter: s.Filter}
}
