package socketio

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/rythmtune/rythmtune-backend/internal/domain/player"
	"github.com/rythmtune/rythmtune-backend/internal/infra/library"
	"github.com/rythmtune/rythmtune-backend/internal/infra/streamapi"
)

// defaultHistoryLimit caps a history push when the client does not ask for a
// specific window.
const defaultHistoryLimit = 50

// LibraryHandlers contains Socket.IO handlers for the user library:
// favorites, play history, and playlists.
type LibraryHandlers struct {
	dao        *library.DAO
	controller *player.Controller
	userID     string
}

// NewLibraryHandlers creates library handlers for the given identity.
func NewLibraryHandlers(dao *library.DAO, controller *player.Controller, userID string) *LibraryHandlers {
	return &LibraryHandlers{
		dao:        dao,
		controller: controller,
		userID:     userID,
	}
}

// RegisterHandlers registers all library-related Socket.IO handlers.
func (h *LibraryHandlers) RegisterHandlers(client *socket.Socket) {
	client.On("getFavorites", func(args ...interface{}) {
		h.handleGetFavorites(client)
	})

	client.On("getHistory", func(args ...interface{}) {
		h.handleGetHistory(client, args...)
	})

	client.On("getPlaylists", func(args ...interface{}) {
		h.handleGetPlaylists(client)
	})

	client.On("getPlaylistTracks", func(args ...interface{}) {
		h.handleGetPlaylistTracks(client, args...)
	})

	client.On("createPlaylist", func(args ...interface{}) {
		h.handleCreatePlaylist(client, args...)
	})

	client.On("addToPlaylist", func(args ...interface{}) {
		h.handleAddToPlaylist(client, args...)
	})

	client.On("playPlaylist", func(args ...interface{}) {
		h.handlePlayPlaylist(client, args...)
	})
}

func (h *LibraryHandlers) handleGetFavorites(client *socket.Socket) {
	favorites, err := h.dao.ListFavorites(h.userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list favorites")
		favorites = nil
	}
	if favorites == nil {
		favorites = []*library.Favorite{}
	}
	client.Emit("pushFavorites", favorites)
}

func (h *LibraryHandlers) handleGetHistory(client *socket.Socket, args ...interface{}) {
	limit := defaultHistoryLimit
	if m := payloadMap(args); m != nil {
		if v, ok := m["limit"].(float64); ok && v > 0 {
			limit = int(v)
		}
	}

	history, err := h.dao.ListHistory(h.userID, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list history")
		history = nil
	}
	if history == nil {
		history = []*library.HistoryEntry{}
	}
	client.Emit("pushHistory", history)
}

func (h *LibraryHandlers) handleGetPlaylists(client *socket.Socket) {
	playlists, err := h.dao.ListPlaylists(h.userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list playlists")
		playlists = nil
	}
	if playlists == nil {
		playlists = []*library.Playlist{}
	}
	client.Emit("pushPlaylists", playlists)
}

func (h *LibraryHandlers) handleGetPlaylistTracks(client *socket.Socket, args ...interface{}) {
	id := payloadString(args, "id")
	if id == "" {
		return
	}

	items, err := h.dao.PlaylistItems(id)
	if err != nil {
		log.Error().Err(err).Str("playlistId", id).Msg("Failed to list playlist items")
		items = nil
	}
	if items == nil {
		items = []*library.PlaylistItem{}
	}
	client.Emit("pushPlaylistTracks", map[string]interface{}{
		"id":    id,
		"items": items,
	})
}

func (h *LibraryHandlers) handleCreatePlaylist(client *socket.Socket, args ...interface{}) {
	name := payloadString(args, "name")
	if name == "" {
		return
	}

	if _, err := h.dao.CreatePlaylist(h.userID, name); err != nil {
		log.Error().Err(err).Str("name", name).Msg("Failed to create playlist")
		return
	}
	h.handleGetPlaylists(client)
}

func (h *LibraryHandlers) handleAddToPlaylist(client *socket.Socket, args ...interface{}) {
	m := payloadMap(args)
	if m == nil {
		return
	}
	playlistID, _ := m["playlistId"].(string)
	track, ok := decodeTrack(m["track"])
	if playlistID == "" || !ok {
		return
	}

	item := &library.PlaylistItem{
		PlaylistID: playlistID,
		VideoID:    track.TrackID(),
		Title:      track.Title,
		Artist:     track.ArtistName(),
		Thumbnail:  track.ThumbnailURL(),
		Duration:   int(track.Duration),
	}
	if err := h.dao.AddPlaylistItem(item); err != nil {
		log.Error().Err(err).Str("playlistId", playlistID).Msg("Failed to add playlist item")
	}
}

// handlePlayPlaylist loads a playlist and starts playback with the full item
// list as an explicit queue. An optional trackId selects the starting track,
// defaulting to the first item.
func (h *LibraryHandlers) handlePlayPlaylist(client *socket.Socket, args ...interface{}) {
	id := payloadString(args, "id")
	if id == "" {
		return
	}
	startID := payloadString(args, "trackId")

	items, err := h.dao.PlaylistItems(id)
	if err != nil {
		log.Error().Err(err).Str("playlistId", id).Msg("Failed to load playlist")
		return
	}
	if len(items) == 0 {
		log.Debug().Str("playlistId", id).Msg("Playlist is empty")
		return
	}

	override := make([]streamapi.TrackRecord, 0, len(items))
	for _, item := range items {
		override = append(override, streamapi.TrackRecord{
			VideoID:   item.VideoID,
			Title:     item.Title,
			Artist:    item.Artist,
			Thumbnail: item.Thumbnail,
			Duration:  float64(item.Duration),
		})
	}

	start := override[0]
	if startID != "" {
		for _, rec := range override {
			if rec.TrackID() == startID {
				start = rec
				break
			}
		}
	}

	log.Info().Str("playlistId", id).Str("trackId", start.TrackID()).Msg("playPlaylist")
	h.controller.PlaySong(context.Background(), start, override, true)
}
