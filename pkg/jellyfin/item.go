package jellyfin

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// idNamespace derives stable ids for records whose id is not a UUID.
var idNamespace = uuid.MustParse("9b0d7a64-52f1-4c36-8f1a-5f3d0f4a1c11")

// ticksPerDuration converts Jellyfin ticks (100ns) to time.Duration.
const ticksPerDuration = 100

// Item is a mapped Jellyfin record.
type Item struct {
	ID         uuid.UUID
	RawID      string
	Name       string
	Kind       string
	SeriesID   uuid.UUID
	SeriesName string
	Season     int
	Episode    int
	Year       int
	Runtime    time.Duration

	// GroupingID is the series id for episodes when series grouping is
	// preferred, the item id otherwise.
	GroupingID uuid.UUID

	Played         bool
	Favorite       bool
	PlayCount      int
	ResumePosition time.Duration
	HasImage       bool
}

// Title renders a display title; episodes include series and numbering.
func (i Item) Title() string {
	if i.Kind == KindEpisode && i.SeriesName != "" {
		if i.Season > 0 || i.Episode > 0 {
			return fmt.Sprintf("%s S%02dE%02d - %s", i.SeriesName, i.Season, i.Episode, i.Name)
		}
		return i.SeriesName + " - " + i.Name
	}
	if i.Year > 0 {
		return fmt.Sprintf("%s (%d)", i.Name, i.Year)
	}
	return i.Name
}

// Progress returns the resume position as a fraction of the runtime.
func (i Item) Progress() float64 {
	if i.Runtime <= 0 || i.ResumePosition <= 0 {
		return 0
	}
	return min(1, float64(i.ResumePosition)/float64(i.Runtime))
}

// ParseID converts a Jellyfin id (32 hex digits, with or without dashes)
// to a UUID. Other ids map to a stable name-based UUID. Empty yields uuid.Nil.
func ParseID(id string) uuid.UUID {
	if id == "" {
		return uuid.Nil
	}
	if u, err := uuid.Parse(id); err == nil {
		return u
	}
	return uuid.NewSHA1(idNamespace, []byte(id))
}

// FormatID renders a UUID the way Jellyfin prints ids.
func FormatID(id uuid.UUID) string {
	return fmt.Sprintf("%x", id[:])
}
