package library

import "time"

// Favorite is a liked track recorded for a user.
type Favorite struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	VideoID   string    `json:"videoId"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryEntry is one play-history record. History is append-only.
type HistoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	VideoID   string    `json:"videoId"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	PlayedAt  time.Time `json:"playedAt"`
}

// Playlist is a user-curated track list.
type Playlist struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PlaylistItem is one track inside a playlist, ordered by Position.
type PlaylistItem struct {
	ID         string `json:"id"`
	PlaylistID string `json:"playlistId"`
	VideoID    string `json:"videoId"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	Duration   int    `json:"duration,omitempty"`
	Position   int    `json:"position"`
}
