package jellyfin

// BaseItemDto is the subset of Jellyfin's item representation the pager uses.
type BaseItemDto struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	Type              string            `json:"Type"`
	MediaType         string            `json:"MediaType,omitempty"`
	SeriesID          string            `json:"SeriesId,omitempty"`
	SeriesName        string            `json:"SeriesName,omitempty"`
	SeasonID          string            `json:"SeasonId,omitempty"`
	ParentIndexNumber *int              `json:"ParentIndexNumber,omitempty"`
	IndexNumber       *int              `json:"IndexNumber,omitempty"`
	ProductionYear    int               `json:"ProductionYear,omitempty"`
	PremiereDate      string            `json:"PremiereDate,omitempty"`
	RunTimeTicks      int64             `json:"RunTimeTicks,omitempty"`
	ChannelID         string            `json:"ChannelId,omitempty"`
	StartDate         string            `json:"StartDate,omitempty"`
	EndDate           string            `json:"EndDate,omitempty"`
	ImageTags         map[string]string `json:"ImageTags,omitempty"`
	UserData          *UserItemDataDto  `json:"UserData,omitempty"`
}

// UserItemDataDto is the per-user playback state of an item.
type UserItemDataDto struct {
	PlaybackPositionTicks int64 `json:"PlaybackPositionTicks"`
	PlayCount             int   `json:"PlayCount"`
	IsFavorite            bool  `json:"IsFavorite"`
	Played                bool  `json:"Played"`
	UnplayedItemCount     int   `json:"UnplayedItemCount,omitempty"`
}

// ItemsResult is the envelope of every Jellyfin listing endpoint.
type ItemsResult struct {
	Items            []BaseItemDto `json:"Items"`
	TotalRecordCount int           `json:"TotalRecordCount"`
	StartIndex       int           `json:"StartIndex"`
}

// Item kinds as reported in BaseItemDto.Type.
const (
	KindMovie      = "Movie"
	KindSeries     = "Series"
	KindSeason     = "Season"
	KindEpisode    = "Episode"
	KindAudio      = "Audio"
	KindPlaylist   = "Playlist"
	KindGenre      = "Genre"
	KindPerson     = "Person"
	KindProgram    = "Program"
	KindBoxSet     = "BoxSet"
	KindFolder     = "Folder"
	KindMusicAlbum = "MusicAlbum"
)

// DefaultFields are requested on every listing so mapped items are complete.
var DefaultFields = []string{"PrimaryImageAspectRatio", "ProductionYear", "PremiereDate", "SeriesInfo"}
