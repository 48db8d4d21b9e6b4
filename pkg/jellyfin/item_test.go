package jellyfin

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	hex := "f27caa37e5142225cceded48f6553502"

	u := ParseID(hex)
	require.NotEqual(t, uuid.Nil, u)
	assert.Equal(t, "f27caa37-e514-2225-cced-ed48f6553502", u.String())

	assert.Equal(t, u, ParseID("f27caa37-e514-2225-cced-ed48f6553502"))
	assert.Equal(t, uuid.Nil, ParseID(""))

	a := ParseID("not-a-uuid")
	assert.NotEqual(t, uuid.Nil, a)
	assert.Equal(t, a, ParseID("not-a-uuid"), "name-based ids must be stable")
	assert.NotEqual(t, a, ParseID("another"))
}

func TestFormatID(t *testing.T) {
	hex := "f27caa37e5142225cceded48f6553502"
	assert.Equal(t, hex, FormatID(ParseID(hex)))
}

func TestItemTitle(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want string
	}{
		{
			name: "episode with numbering",
			item: Item{Kind: KindEpisode, Name: "Pilot", SeriesName: "Lost", Season: 1, Episode: 2},
			want: "Lost S01E02 - Pilot",
		},
		{
			name: "episode without numbering",
			item: Item{Kind: KindEpisode, Name: "Special", SeriesName: "Lost"},
			want: "Lost - Special",
		},
		{
			name: "movie with year",
			item: Item{Kind: KindMovie, Name: "Heat", Year: 1995},
			want: "Heat (1995)",
		},
		{
			name: "genre",
			item: Item{Kind: KindGenre, Name: "Drama"},
			want: "Drama",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.Title())
		})
	}
}

func TestItemProgress(t *testing.T) {
	assert.Zero(t, Item{}.Progress())
	assert.InDelta(t, 0.25, Item{Runtime: 40 * time.Minute, ResumePosition: 10 * time.Minute}.Progress(), 1e-9)
	assert.Equal(t, 1.0, Item{Runtime: time.Minute, ResumePosition: 2 * time.Minute}.Progress())
}
