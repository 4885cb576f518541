package player

import "github.com/rythmtune/rythmtune-backend/internal/infra/streamapi"

// PlaceholderTitle is shown for a track requested before its metadata is
// known.
const PlaceholderTitle = "Loading..."

// Track is a playable item. It is constructed optimistically from whatever
// fields the requesting surface has, and completed in place once the stream
// resolution returns.
type Track struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	ArtistName      string  `json:"artist"`
	ThumbnailURL    string  `json:"thumbnail,omitempty"`
	StreamURL       string  `json:"streamUrl,omitempty"`
	DurationSeconds float64 `json:"duration,omitempty"`
}

// TrackFromRecord builds the optimistic track from a wire record. The stream
// URL stays empty until resolution succeeds.
func TrackFromRecord(rec streamapi.TrackRecord) Track {
	title := rec.Title
	if title == "" {
		title = PlaceholderTitle
	}
	return Track{
		ID:              rec.TrackID(),
		Title:           title,
		ArtistName:      rec.ArtistName(),
		ThumbnailURL:    rec.ThumbnailURL(),
		DurationSeconds: rec.Duration,
	}
}

// Record converts the track back into the wire shape, for paths that re-enter
// through PlaySong.
func (t Track) Record() streamapi.TrackRecord {
	return streamapi.TrackRecord{
		VideoID:   t.ID,
		Title:     t.Title,
		Artist:    t.ArtistName,
		Thumbnail: t.ThumbnailURL,
		Duration:  t.DurationSeconds,
	}
}

// mergeStream completes the track with the resolved stream info. Canonical
// metadata overrides the optimistic fields when present.
func (t *Track) mergeStream(info *streamapi.StreamInfo) {
	t.StreamURL = info.URL
	if info.Title != "" {
		t.Title = info.Title
	}
	if info.Artist != "" {
		t.ArtistName = info.Artist
	}
	if info.Thumbnail != "" {
		t.ThumbnailURL = info.Thumbnail
	}
	if info.Duration > 0 {
		t.DurationSeconds = info.Duration
	}
}
