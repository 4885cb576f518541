package library

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DAO provides data access operations for the library store.
type DAO struct {
	db *DB
}

// NewDAO creates a new DAO instance.
func NewDAO(db *DB) *DAO {
	return &DAO{db: db}
}

// --- Favorite Operations ---

// IsFavorite reports whether the track is recorded as a favorite for the user.
func (dao *DAO) IsFavorite(userID, videoID string) (bool, error) {
	db := dao.db.DB()
	if db == nil {
		return false, fmt.Errorf("database not open")
	}

	var id string
	err := db.QueryRow(`
		SELECT id FROM favorites WHERE user_id = ? AND video_id = ?
	`, userID, videoID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertFavorite records a track as a favorite. Inserting a track that is
// already a favorite is a no-op.
func (dao *DAO) InsertFavorite(fav *Favorite) error {
	db := dao.db.DB()
	if db == nil {
		return fmt.Errorf("database not open")
	}

	if fav.ID == "" {
		fav.ID = uuid.NewString()
	}

	_, err := db.Exec(`
		INSERT INTO favorites (id, user_id, video_id, title, artist, thumbnail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, video_id) DO NOTHING
	`, fav.ID, fav.UserID, fav.VideoID, fav.Title, fav.Artist, fav.Thumbnail,
		time.Now().Format(time.RFC3339))
	return err
}

// DeleteFavorite removes a favorite record for the user and track.
func (dao *DAO) DeleteFavorite(userID, videoID string) error {
	db := dao.db.DB()
	if db == nil {
		return fmt.Errorf("database not open")
	}

	_, err := db.Exec(`
		DELETE FROM favorites WHERE user_id = ? AND video_id = ?
	`, userID, videoID)
	return err
}

// ListFavorites returns the user's favorites, most recent first.
func (dao *DAO) ListFavorites(userID string) ([]*Favorite, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, fmt.Errorf("database not open")
	}

	rows, err := db.Query(`
		SELECT id, user_id, video_id, title, artist, thumbnail, created_at
		FROM favorites WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favorites []*Favorite
	for rows.Next() {
		fav := &Favorite{}
		var artist, thumbnail, createdAt sql.NullString
		if err := rows.Scan(&fav.ID, &fav.UserID, &fav.VideoID, &fav.Title,
			&artist, &thumbnail, &createdAt); err != nil {
			return nil, err
		}
		fav.Artist = artist.String
		fav.Thumbnail = thumbnail.String
		if createdAt.Valid {
			fav.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
		}
		favorites = append(favorites, fav)
	}
	return favorites, rows.Err()
}

// --- History Operations ---

// AppendHistory adds a play-history record. History is never updated in place.
func (dao *DAO) AppendHistory(entry *HistoryEntry) error {
	db := dao.db.DB()
	if db == nil {
		return fmt.Errorf("database not open")
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	_, err := db.Exec(`
		INSERT INTO history (id, user_id, video_id, title, artist, thumbnail, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.UserID, entry.VideoID, entry.Title, entry.Artist, entry.Thumbnail,
		time.Now().Format(time.RFC3339))
	return err
}

// ListHistory returns the user's most recent plays, newest first.
func (dao *DAO) ListHistory(userID string, limit int) ([]*HistoryEntry, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, fmt.Errorf("database not open")
	}

	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT id, user_id, video_id, title, artist, thumbnail, played_at
		FROM history WHERE user_id = ? ORDER BY played_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		entry := &HistoryEntry{}
		var artist, thumbnail, playedAt sql.NullString
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.VideoID, &entry.Title,
			&artist, &thumbnail, &playedAt); err != nil {
			return nil, err
		}
		entry.Artist = artist.String
		entry.Thumbnail = thumbnail.String
		if playedAt.Valid {
			entry.PlayedAt, _ = time.Parse(time.RFC3339, playedAt.String)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// --- Playlist Operations ---

// CreatePlaylist creates a new empty playlist for the user.
func (dao *DAO) CreatePlaylist(userID, name string) (*Playlist, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, fmt.Errorf("database not open")
	}

	now := time.Now()
	pl := &Playlist{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := db.Exec(`
		INSERT INTO playlists (id, user_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, pl.ID, pl.UserID, pl.Name, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return pl, nil
}

// ListPlaylists returns the user's playlists.
func (dao *DAO) ListPlaylists(userID string) ([]*Playlist, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, fmt.Errorf("database not open")
	}

	rows, err := db.Query(`
		SELECT id, user_id, name, created_at, updated_at
		FROM playlists WHERE user_id = ? ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []*Playlist
	for rows.Next() {
		pl := &Playlist{}
		var createdAt, updatedAt sql.NullString
		if err := rows.Scan(&pl.ID, &pl.UserID, &pl.Name, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			pl.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
		}
		if updatedAt.Valid {
			pl.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt.String)
		}
		playlists = append(playlists, pl)
	}
	return playlists, rows.Err()
}

// AddPlaylistItem appends a track to the end of a playlist.
func (dao *DAO) AddPlaylistItem(item *PlaylistItem) error {
	db := dao.db.DB()
	if db == nil {
		return fmt.Errorf("database not open")
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	var maxPos sql.NullInt64
	if err := db.QueryRow(`
		SELECT MAX(position) FROM playlist_items WHERE playlist_id = ?
	`, item.PlaylistID).Scan(&maxPos); err != nil {
		return err
	}
	item.Position = int(maxPos.Int64) + 1

	_, err := db.Exec(`
		INSERT INTO playlist_items (id, playlist_id, video_id, title, artist, thumbnail, duration, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.PlaylistID, item.VideoID, item.Title, item.Artist, item.Thumbnail,
		item.Duration, item.Position, time.Now().Format(time.RFC3339))
	if err != nil {
		return err
	}

	_, err = db.Exec(`UPDATE playlists SET updated_at = ? WHERE id = ?`,
		time.Now().Format(time.RFC3339), item.PlaylistID)
	return err
}

// PlaylistItems returns a playlist's tracks in order.
func (dao *DAO) PlaylistItems(playlistID string) ([]*PlaylistItem, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, fmt.Errorf("database not open")
	}

	rows, err := db.Query(`
		SELECT id, playlist_id, video_id, title, artist, thumbnail, duration, position
		FROM playlist_items WHERE playlist_id = ? ORDER BY position
	`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*PlaylistItem
	for rows.Next() {
		item := &PlaylistItem{}
		var artist, thumbnail sql.NullString
		if err := rows.Scan(&item.ID, &item.PlaylistID, &item.VideoID, &item.Title,
			&artist, &thumbnail, &item.Duration, &item.Position); err != nil {
			return nil, err
		}
		item.Artist = artist.String
		item.Thumbnail = thumbnail.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// --- Profile Operations ---

// ProfileSettings returns the stored settings blob for a user, or "" when the
// user has no profile row yet.
func (dao *DAO) ProfileSettings(userID string) (string, error) {
	db := dao.db.DB()
	if db == nil {
		return "", fmt.Errorf("database not open")
	}

	var blob sql.NullString
	err := db.QueryRow(`SELECT settings FROM profiles WHERE user_id = ?`, userID).Scan(&blob)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return blob.String, nil
}

// SaveProfileSettings stores the settings blob for a user.
func (dao *DAO) SaveProfileSettings(userID, blob string) error {
	db := dao.db.DB()
	if db == nil {
		return fmt.Errorf("database not open")
	}

	now := time.Now().Format(time.RFC3339)
	_, err := db.Exec(`
		INSERT INTO profiles (user_id, settings, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET settings = ?, updated_at = ?
	`, userID, blob, now, blob, now)
	return err
}
