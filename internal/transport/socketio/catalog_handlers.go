package socketio

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/rythmtune/rythmtune-backend/internal/infra/streamapi"
)

// catalogTimeout bounds every upstream catalog request issued on behalf of a
// client event.
const catalogTimeout = 10 * time.Second

// CatalogHandlers serves search, charts, suggestions, and artist lookups
// from the streaming API. All responses are best effort: an upstream failure
// yields an empty push, never a client-facing error.
type CatalogHandlers struct {
	api *streamapi.Client
}

// NewCatalogHandlers creates handlers around the streaming API client.
func NewCatalogHandlers(api *streamapi.Client) *CatalogHandlers {
	return &CatalogHandlers{api: api}
}

// RegisterHandlers registers all catalog-related Socket.IO handlers.
func (h *CatalogHandlers) RegisterHandlers(client *socket.Socket) {
	client.On("search", func(args ...interface{}) {
		h.handleSearch(client, args...)
	})

	client.On("getCharts", func(args ...interface{}) {
		h.handleCharts(client)
	})

	client.On("getSuggestions", func(args ...interface{}) {
		h.handleSuggestions(client, args...)
	})

	client.On("getArtist", func(args ...interface{}) {
		h.handleArtist(client, args...)
	})
}

func (h *CatalogHandlers) handleSearch(client *socket.Socket, args ...interface{}) {
	query := payloadString(args, "query")
	if query == "" {
		client.Emit("pushSearchResults", []streamapi.TrackRecord{})
		return
	}
	log.Debug().Str("query", query).Msg("search")

	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	results, err := h.api.Search(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Search failed")
		results = nil
	}
	if results == nil {
		results = []streamapi.TrackRecord{}
	}
	client.Emit("pushSearchResults", results)
}

func (h *CatalogHandlers) handleCharts(client *socket.Socket) {
	log.Debug().Msg("getCharts")

	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	charts, err := h.api.Charts(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Charts fetch failed")
		charts = nil
	}
	if charts == nil {
		charts = []streamapi.TrackRecord{}
	}
	client.Emit("pushCharts", charts)
}

func (h *CatalogHandlers) handleSuggestions(client *socket.Socket, args ...interface{}) {
	query := payloadString(args, "query")
	if query == "" {
		client.Emit("pushSuggestions", &streamapi.Suggestions{})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	suggestions, err := h.api.Suggestions(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Suggestions fetch failed")
		suggestions = &streamapi.Suggestions{}
	}
	client.Emit("pushSuggestions", suggestions)
}

func (h *CatalogHandlers) handleArtist(client *socket.Socket, args ...interface{}) {
	id := payloadString(args, "id")
	if id == "" {
		return
	}
	log.Debug().Str("artistId", id).Msg("getArtist")

	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	artist, err := h.api.Artist(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("artistId", id).Msg("Artist fetch failed")
		return
	}
	client.Emit("pushArtist", artist)
}

// payloadString extracts a string field from the first object argument.
func payloadString(args []interface{}, key string) string {
	if m := payloadMap(args); m != nil {
		if v, ok := m[key].(string); ok {
			return v
		}
	}
	return ""
}
