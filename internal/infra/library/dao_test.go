package library_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rythmtune/rythmtune-backend/internal/infra/library"
)

func openTestDB(t *testing.T) *library.DB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "library_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	db := library.NewDB(filepath.Join(tmpDir, "test.db"))
	if err := db.Open(); err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestNewDB(t *testing.T) {
	db := library.NewDB("")
	if db == nil {
		t.Error("NewDB should return a non-nil instance")
	}
}

func TestDBOpenClose(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "library_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")
	db := library.NewDB(dbPath)

	if err := db.Open(); err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist after Open()")
	}

	if err := db.Close(); err != nil {
		t.Errorf("Failed to close database: %v", err)
	}
}

func TestFavorites(t *testing.T) {
	db := openTestDB(t)
	dao := library.NewDAO(db)

	liked, err := dao.IsFavorite("user1", "v1")
	if err != nil {
		t.Fatalf("IsFavorite failed: %v", err)
	}
	if liked {
		t.Error("expected no favorite before insert")
	}

	fav := &library.Favorite{
		UserID:    "user1",
		VideoID:   "v1",
		Title:     "Song One",
		Artist:    "Band",
		Thumbnail: "thumb.jpg",
	}
	if err := dao.InsertFavorite(fav); err != nil {
		t.Fatalf("InsertFavorite failed: %v", err)
	}
	if fav.ID == "" {
		t.Error("InsertFavorite should assign an ID")
	}

	// Duplicate insert is a no-op
	if err := dao.InsertFavorite(&library.Favorite{UserID: "user1", VideoID: "v1", Title: "Song One"}); err != nil {
		t.Fatalf("duplicate InsertFavorite failed: %v", err)
	}

	favorites, err := dao.ListFavorites("user1")
	if err != nil {
		t.Fatalf("ListFavorites failed: %v", err)
	}
	if len(favorites) != 1 {
		t.Fatalf("expected 1 favorite, got %d", len(favorites))
	}
	if favorites[0].Title != "Song One" {
		t.Errorf("expected title 'Song One', got %q", favorites[0].Title)
	}

	liked, err = dao.IsFavorite("user1", "v1")
	if err != nil {
		t.Fatalf("IsFavorite failed: %v", err)
	}
	if !liked {
		t.Error("expected favorite after insert")
	}

	// Another user's favorites are separate
	liked, _ = dao.IsFavorite("user2", "v1")
	if liked {
		t.Error("favorite should be scoped to its user")
	}

	if err := dao.DeleteFavorite("user1", "v1"); err != nil {
		t.Fatalf("DeleteFavorite failed: %v", err)
	}
	liked, _ = dao.IsFavorite("user1", "v1")
	if liked {
		t.Error("expected no favorite after delete")
	}
}

func TestHistory(t *testing.T) {
	db := openTestDB(t)
	dao := library.NewDAO(db)

	for _, videoID := range []string{"v1", "v2", "v1"} {
		err := dao.AppendHistory(&library.HistoryEntry{
			UserID:  "user1",
			VideoID: videoID,
			Title:   "Track " + videoID,
		})
		if err != nil {
			t.Fatalf("AppendHistory failed: %v", err)
		}
	}

	entries, err := dao.ListHistory("user1", 10)
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	// History is append-only, repeats included
	if len(entries) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(entries))
	}

	entries, err = dao.ListHistory("user1", 2)
	if err != nil {
		t.Fatalf("ListHistory with limit failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries with limit, got %d", len(entries))
	}
}

func TestPlaylists(t *testing.T) {
	db := openTestDB(t)
	dao := library.NewDAO(db)

	pl, err := dao.CreatePlaylist("user1", "Road Trip")
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}
	if pl.ID == "" {
		t.Fatal("CreatePlaylist should assign an ID")
	}

	for i, videoID := range []string{"v1", "v2", "v3"} {
		err := dao.AddPlaylistItem(&library.PlaylistItem{
			PlaylistID: pl.ID,
			VideoID:    videoID,
			Title:      "Track " + videoID,
			Duration:   100 + i,
		})
		if err != nil {
			t.Fatalf("AddPlaylistItem failed: %v", err)
		}
	}

	items, err := dao.PlaylistItems(pl.ID)
	if err != nil {
		t.Fatalf("PlaylistItems failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, item := range items {
		if item.Position != i+1 {
			t.Errorf("item %d: expected position %d, got %d", i, i+1, item.Position)
		}
	}

	playlists, err := dao.ListPlaylists("user1")
	if err != nil {
		t.Fatalf("ListPlaylists failed: %v", err)
	}
	if len(playlists) != 1 || playlists[0].Name != "Road Trip" {
		t.Errorf("unexpected playlists: %+v", playlists)
	}
}

func TestProfileSettings(t *testing.T) {
	db := openTestDB(t)
	dao := library.NewDAO(db)

	blob, err := dao.ProfileSettings("user1")
	if err != nil {
		t.Fatalf("ProfileSettings failed: %v", err)
	}
	if blob != "" {
		t.Errorf("expected empty blob for fresh profile, got %q", blob)
	}

	if err := dao.SaveProfileSettings("user1", `{"crossfade":6}`); err != nil {
		t.Fatalf("SaveProfileSettings failed: %v", err)
	}

	blob, err = dao.ProfileSettings("user1")
	if err != nil {
		t.Fatalf("ProfileSettings failed: %v", err)
	}
	if blob != `{"crossfade":6}` {
		t.Errorf("unexpected blob: %q", blob)
	}

	// Overwrite
	if err := dao.SaveProfileSettings("user1", `{"crossfade":0}`); err != nil {
		t.Fatalf("SaveProfileSettings overwrite failed: %v", err)
	}
	blob, _ = dao.ProfileSettings("user1")
	if blob != `{"crossfade":0}` {
		t.Errorf("expected overwritten blob, got %q", blob)
	}
}
