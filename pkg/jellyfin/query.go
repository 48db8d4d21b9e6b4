package jellyfin

import (
	"net/url"
	"strconv"
	"strings"
)

// Paging is the window shared by every listing query.
type Paging struct {
	StartIndex             int
	Limit                  int
	EnableTotalRecordCount bool
}

func (p Paging) apply(v url.Values) {
	v.Set("StartIndex", strconv.Itoa(p.StartIndex))
	if p.Limit > 0 {
		v.Set("Limit", strconv.Itoa(p.Limit))
	}
	v.Set("EnableTotalRecordCount", strconv.FormatBool(p.EnableTotalRecordCount))
}

// Query is a listing request that can be scoped to one page.
type Query[Q any] interface {
	// WithPaging returns a copy of the query limited to p.
	WithPaging(p Paging) Q

	// Endpoint returns the request path for userID.
	Endpoint(userID string) string

	// Values returns the query string, paging included.
	Values(userID string) url.Values
}

func setList(v url.Values, key string, values []string) {
	if len(values) > 0 {
		v.Set(key, strings.Join(values, ","))
	}
}

func setNonEmpty(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func fieldsOrDefault(fields []string) []string {
	if len(fields) == 0 {
		return DefaultFields
	}
	return fields
}

// ItemsQuery lists library items.
type ItemsQuery struct {
	ParentID         string
	IncludeItemTypes []string
	Recursive        bool
	SortBy           []string
	SortOrder        string
	SearchTerm       string
	Filters          []string
	Fields           []string
	Paging
}

func (q ItemsQuery) WithPaging(p Paging) ItemsQuery { q.Paging = p; return q }

func (q ItemsQuery) Endpoint(userID string) string { return "/Users/" + userID + "/Items" }

func (q ItemsQuery) Values(string) url.Values {
	v := url.Values{}
	setNonEmpty(v, "ParentId", q.ParentID)
	setList(v, "IncludeItemTypes", q.IncludeItemTypes)
	if q.Recursive {
		v.Set("Recursive", "true")
	}
	setList(v, "SortBy", q.SortBy)
	setNonEmpty(v, "SortOrder", q.SortOrder)
	setNonEmpty(v, "SearchTerm", q.SearchTerm)
	setList(v, "Filters", q.Filters)
	setList(v, "Fields", fieldsOrDefault(q.Fields))
	q.Paging.apply(v)
	return v
}

// EpisodesQuery lists the episodes of a series, optionally one season.
type EpisodesQuery struct {
	SeriesID string
	SeasonID string
	Fields   []string
	Paging
}

func (q EpisodesQuery) WithPaging(p Paging) EpisodesQuery { q.Paging = p; return q }

func (q EpisodesQuery) Endpoint(string) string { return "/Shows/" + q.SeriesID + "/Episodes" }

func (q EpisodesQuery) Values(userID string) url.Values {
	v := url.Values{}
	v.Set("UserId", userID)
	setNonEmpty(v, "SeasonId", q.SeasonID)
	setList(v, "Fields", fieldsOrDefault(q.Fields))
	q.Paging.apply(v)
	return v
}

// ResumeQuery lists partially watched items.
type ResumeQuery struct {
	ParentID   string
	MediaTypes []string
	Fields     []string
	Paging
}

func (q ResumeQuery) WithPaging(p Paging) ResumeQuery { q.Paging = p; return q }

func (q ResumeQuery) Endpoint(userID string) string { return "/Users/" + userID + "/Items/Resume" }

func (q ResumeQuery) Values(string) url.Values {
	v := url.Values{}
	setNonEmpty(v, "ParentId", q.ParentID)
	setList(v, "MediaTypes", q.MediaTypes)
	setList(v, "Fields", fieldsOrDefault(q.Fields))
	q.Paging.apply(v)
	return v
}

// NextUpQuery lists the next episode to watch per series.
type NextUpQuery struct {
	SeriesID string
	ParentID string
	Fields   []string
	Paging
}

func (q NextUpQuery) WithPaging(p Paging) NextUpQuery { q.Paging = p; return q }

func (q NextUpQuery) Endpoint(string) string { return "/Shows/NextUp" }

func (q NextUpQuery) Values(userID string) url.Values {
	v := url.Values{}
	v.Set("UserId", userID)
	setNonEmpty(v, "SeriesId", q.SeriesID)
	setNonEmpty(v, "ParentId", q.ParentID)
	setList(v, "Fields", fieldsOrDefault(q.Fields))
	q.Paging.apply(v)
	return v
}

// PlaylistItemsQuery lists the entries of a playlist.
type PlaylistItemsQuery struct {
	PlaylistID string
	Fields     []string
	Paging
}

func (q PlaylistItemsQuery) WithPaging(p Paging) PlaylistItemsQuery { q.Paging = p; return q }

func (q PlaylistItemsQuery) Endpoint(string) string { return "/Playlists/" + q.PlaylistID + "/Items" }

func (q PlaylistItemsQuery) Values(userID string) url.Values {
	v := url.Values{}
	v.Set("UserId", userID)
	setList(v, "Fields", fieldsOrDefault(q.Fields))
	q.Paging.apply(v)
	return v
}

// GenresQuery lists genres, optionally under one library.
type GenresQuery struct {
	ParentID         string
	IncludeItemTypes []string
	Paging
}

func (q GenresQuery) WithPaging(p Paging) GenresQuery { q.Paging = p; return q }

func (q GenresQuery) Endpoint(string) string { return "/Genres" }

func (q GenresQuery) Values(userID string) url.Values {
	v := url.Values{}
	v.Set("UserId", userID)
	setNonEmpty(v, "ParentId", q.ParentID)
	setList(v, "IncludeItemTypes", q.IncludeItemTypes)
	v.Set("SortBy", "SortName")
	q.Paging.apply(v)
	return v
}

// PersonsQuery lists people (actors, directors, ...).
type PersonsQuery struct {
	SearchTerm  string
	PersonTypes []string
	Paging
}

func (q PersonsQuery) WithPaging(p Paging) PersonsQuery { q.Paging = p; return q }

func (q PersonsQuery) Endpoint(string) string { return "/Persons" }

func (q PersonsQuery) Values(userID string) url.Values {
	v := url.Values{}
	v.Set("UserId", userID)
	setNonEmpty(v, "SearchTerm", q.SearchTerm)
	setList(v, "PersonTypes", q.PersonTypes)
	q.Paging.apply(v)
	return v
}

// ProgramsQuery lists live TV guide programs.
type ProgramsQuery struct {
	ChannelIDs []string
	IsAiring   *bool
	Paging
}

func (q ProgramsQuery) WithPaging(p Paging) ProgramsQuery { q.Paging = p; return q }

func (q ProgramsQuery) Endpoint(string) string { return "/LiveTv/Programs" }

func (q ProgramsQuery) Values(userID string) url.Values {
	v := url.Values{}
	v.Set("UserId", userID)
	setList(v, "ChannelIds", q.ChannelIDs)
	if q.IsAiring != nil {
		v.Set("IsAiring", strconv.FormatBool(*q.IsAiring))
	}
	v.Set("SortBy", "StartDate")
	q.Paging.apply(v)
	return v
}
