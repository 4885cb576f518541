// Package streamapi provides the HTTP client for the remote media-streaming API.
package streamapi

import "errors"

// Common errors
var (
	// ErrUnplayable indicates the track has no playable stream URL (permanent failure)
	ErrUnplayable = errors.New("track unplayable")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("not found")

	// ErrTemporaryFailure indicates a temporary failure (should retry)
	ErrTemporaryFailure = errors.New("temporary failure")

	// ErrRateLimited indicates rate limit was exceeded
	ErrRateLimited = errors.New("rate limited")
)

// StreamInfo is the response of GET /stream/{id}. A missing URL means the
// track cannot be played.
type StreamInfo struct {
	URL       string  `json:"url"`
	Title     string  `json:"title,omitempty"`
	Artist    string  `json:"artist,omitempty"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

// ArtistRef is an artist entry inside a track record.
type ArtistRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// AlbumRef is the album entry inside a track record.
type AlbumRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Thumbnail is one entry of a track's thumbnail list, ordered by resolution.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// TrackRecord is a track as returned by the search, charts and related
// endpoints. Older API revisions used flat "id"/"artist"/"thumbnail" fields,
// the current one uses "videoId" plus artist and thumbnail lists; both forms
// are still served so every accessor tolerates either.
type TrackRecord struct {
	VideoID    string      `json:"videoId,omitempty"`
	ID         string      `json:"id,omitempty"`
	Title      string      `json:"title"`
	Artist     string      `json:"artist,omitempty"`
	Artists    []ArtistRef `json:"artists,omitempty"`
	Album      *AlbumRef   `json:"album,omitempty"`
	Duration   float64     `json:"duration,omitempty"`
	Thumbnail  string      `json:"thumbnail,omitempty"`
	Thumbnails []Thumbnail `json:"thumbnails,omitempty"`
	IsExplicit bool        `json:"isExplicit,omitempty"`
	Year       int         `json:"year,omitempty"`
}

// TrackID returns the stable external identifier, whichever field carries it.
func (r TrackRecord) TrackID() string {
	if r.VideoID != "" {
		return r.VideoID
	}
	return r.ID
}

// ArtistName returns the flat artist field, the joined artist list, or
// "Unknown" when the record carries neither.
func (r TrackRecord) ArtistName() string {
	if r.Artist != "" {
		return r.Artist
	}
	if len(r.Artists) > 0 {
		name := r.Artists[0].Name
		for _, a := range r.Artists[1:] {
			name += ", " + a.Name
		}
		if name != "" {
			return name
		}
	}
	return "Unknown"
}

// ThumbnailURL returns the highest-resolution thumbnail available, preferring
// the last entry of the thumbnail list over the flat field.
func (r TrackRecord) ThumbnailURL() string {
	if n := len(r.Thumbnails); n > 0 {
		if url := r.Thumbnails[n-1].URL; url != "" {
			return url
		}
		return r.Thumbnails[0].URL
	}
	return r.Thumbnail
}

// ArtistInfo is the response of GET /artist/{id}.
type ArtistInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Views       int64       `json:"views,omitempty"`
	Thumbnails  []Thumbnail `json:"thumbnails,omitempty"`
}

// Suggestions is the response of GET /suggestions.
type Suggestions struct {
	Queries []string      `json:"queries"`
	Results []TrackRecord `json:"results"`
}

// IsPermanentError returns true if the error indicates a permanent failure
func IsPermanentError(err error) bool {
	return errors.Is(err, ErrUnplayable) || errors.Is(err, ErrNotFound)
}

// IsTemporaryError returns true if the error indicates a temporary failure
func IsTemporaryError(err error) bool {
	return errors.Is(err, ErrTemporaryFailure) || errors.Is(err, ErrRateLimited)
}
