package jellyfin

import (
	"testing"
	"time"

	"github.com/Sternrassler/jellyfin-pager/pkg/pagination"
	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int { return &i }

func TestMapper(t *testing.T) {
	raw := BaseItemDto{
		ID:                "00000000000000000000000000000001",
		Name:              "Pilot",
		Type:              KindEpisode,
		SeriesID:          "000000000000000000000000000000aa",
		SeriesName:        "Lost",
		ParentIndexNumber: intPtr(1),
		IndexNumber:       intPtr(3),
		ProductionYear:    2004,
		RunTimeTicks:      int64(45*time.Minute) / 100,
		ImageTags:         map[string]string{"Primary": "abc"},
		UserData: &UserItemDataDto{
			PlaybackPositionTicks: int64(5*time.Minute) / 100,
			PlayCount:             2,
			IsFavorite:            true,
			Played:                false,
		},
	}

	item := Mapper{}.MapItem(raw, pagination.MapOptions{})

	assert.Equal(t, ParseID(raw.ID), item.ID)
	assert.Equal(t, raw.ID, item.RawID)
	assert.Equal(t, "Pilot", item.Name)
	assert.Equal(t, KindEpisode, item.Kind)
	assert.Equal(t, ParseID(raw.SeriesID), item.SeriesID)
	assert.Equal(t, 1, item.Season)
	assert.Equal(t, 3, item.Episode)
	assert.Equal(t, 2004, item.Year)
	assert.Equal(t, 45*time.Minute, item.Runtime)
	assert.Equal(t, 5*time.Minute, item.ResumePosition)
	assert.Equal(t, 2, item.PlayCount)
	assert.True(t, item.Favorite)
	assert.False(t, item.Played)
	assert.True(t, item.HasImage)
	assert.Equal(t, item.ID, item.GroupingID)
}

func TestMapper_SeriesGrouping(t *testing.T) {
	episode := BaseItemDto{ID: "00000000000000000000000000000001", Type: KindEpisode, SeriesID: "000000000000000000000000000000aa"}
	movie := BaseItemDto{ID: "00000000000000000000000000000002", Type: KindMovie}

	opts := pagination.MapOptions{PreferSeriesGrouping: true}

	assert.Equal(t, ParseID(episode.SeriesID), Mapper{}.MapItem(episode, opts).GroupingID)
	assert.Equal(t, ParseID(movie.ID), Mapper{}.MapItem(movie, opts).GroupingID)
	assert.Equal(t, ParseID(episode.ID), Mapper{}.MapItem(episode, pagination.MapOptions{}).GroupingID)
}

func TestMapper_NoUserData(t *testing.T) {
	item := Mapper{}.MapItem(BaseItemDto{ID: "x", Name: "Drama", Type: KindGenre}, pagination.MapOptions{})

	assert.False(t, item.Played)
	assert.Zero(t, item.ResumePosition)
	assert.Equal(t, 0, item.Season)
	assert.False(t, item.HasImage)
}
