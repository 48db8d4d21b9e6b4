package seerr

import (
	"strconv"
	"time"

	"github.com/Sternrassler/jellyfin-pager/pkg/pagination"
)

// RequestStatus is the approval state of a request.
type RequestStatus int

const (
	StatusPending  RequestStatus = 1
	StatusApproved RequestStatus = 2
	StatusDeclined RequestStatus = 3
	StatusFailed   RequestStatus = 4
)

func (s RequestStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusDeclined:
		return "declined"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Request is a mapped Seerr media request.
type Request struct {
	ID          int
	Status      RequestStatus
	Type        string
	Is4K        bool
	TMDBID      int
	RequestedBy string
	CreatedAt   time.Time

	// GroupingID is the media id for tv requests when series grouping is
	// preferred, the request id otherwise.
	GroupingID string
}

// MapRequest converts a MediaRequestDto into a Request.
func MapRequest(raw MediaRequestDto, opts pagination.MapOptions) Request {
	r := Request{
		ID:          raw.ID,
		Status:      RequestStatus(raw.Status),
		Type:        raw.Type,
		Is4K:        raw.Is4K,
		TMDBID:      raw.Media.TMDBID,
		RequestedBy: raw.RequestedBy.DisplayName,
		CreatedAt:   raw.CreatedAt,
		GroupingID:  "request:" + strconv.Itoa(raw.ID),
	}
	if opts.PreferSeriesGrouping && raw.Type == "tv" && raw.Media.ID > 0 {
		r.GroupingID = "media:" + strconv.Itoa(raw.Media.ID)
	}
	return r
}
