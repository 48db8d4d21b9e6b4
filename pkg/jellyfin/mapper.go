package jellyfin

import (
	"time"

	"github.com/Sternrassler/jellyfin-pager/pkg/pagination"
)

// Mapper converts BaseItemDto records into Items.
type Mapper struct{}

// MapItem implements pagination.ItemMapper.
func (Mapper) MapItem(raw BaseItemDto, opts pagination.MapOptions) Item {
	item := Item{
		ID:         ParseID(raw.ID),
		RawID:      raw.ID,
		Name:       raw.Name,
		Kind:       raw.Type,
		SeriesID:   ParseID(raw.SeriesID),
		SeriesName: raw.SeriesName,
		Year:       raw.ProductionYear,
		Runtime:    time.Duration(raw.RunTimeTicks * ticksPerDuration),
		HasImage:   raw.ImageTags["Primary"] != "",
	}

	if raw.ParentIndexNumber != nil {
		item.Season = *raw.ParentIndexNumber
	}
	if raw.IndexNumber != nil {
		item.Episode = *raw.IndexNumber
	}

	if ud := raw.UserData; ud != nil {
		item.Played = ud.Played
		item.Favorite = ud.IsFavorite
		item.PlayCount = ud.PlayCount
		item.ResumePosition = time.Duration(ud.PlaybackPositionTicks * ticksPerDuration)
	}

	item.GroupingID = item.ID
	if opts.PreferSeriesGrouping && raw.SeriesID != "" {
		item.GroupingID = item.SeriesID
	}

	return item
}
