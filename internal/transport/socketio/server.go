// Package socketio provides the Socket.io server for client communication.
package socketio

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/rythmtune/rythmtune-backend/internal/audio"
	"github.com/rythmtune/rythmtune-backend/internal/domain/player"
	"github.com/rythmtune/rythmtune-backend/internal/domain/settings"
	"github.com/rythmtune/rythmtune-backend/internal/infra/streamapi"
)

// DefaultBroadcastWindow collapses bursts of state changes, such as the
// rapid time updates during playback, into batched pushes.
const DefaultBroadcastWindow = 100 * time.Millisecond

// DefaultMaxExternalClients bounds concurrent non-localhost connections.
const DefaultMaxExternalClients = 8

// Server handles Socket.io connections and events.
type Server struct {
	io         *socket.Server
	controller *player.Controller
	settings   *settings.Store
	graph      *audio.Graph
	catalog    *CatalogHandlers
	library    *LibraryHandlers
	limiter    *ConnectionLimiter
	debouncer  *BroadcastDebouncer

	mu      sync.RWMutex
	clients map[string]*socket.Socket

	stateMu   sync.Mutex
	lastState map[string]interface{}
}

// stateCompareKeys are the fields compared when deciding whether a state
// broadcast is a duplicate of the previous one. currentTime is excluded:
// clients interpolate playback position locally, so time-only drift must not
// trigger a push.
var stateCompareKeys = []string{
	"isPlaying", "isLoading", "duration",
	"isShuffle", "isRepeat", "isLiked",
	"volume", "cursor", "track",
}

// NewServer creates a new Socket.io server around the playback controller.
// graph, catalog, and libraryHandlers may be nil when those surfaces are
// disabled.
func NewServer(controller *player.Controller, settingsStore *settings.Store, graph *audio.Graph, catalog *CatalogHandlers, libraryHandlers *LibraryHandlers) (*Server, error) {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	server := socket.NewServer(nil, opts)

	s := &Server{
		io:         server,
		controller: controller,
		settings:   settingsStore,
		graph:      graph,
		catalog:    catalog,
		library:    libraryHandlers,
		limiter:    NewConnectionLimiter(DefaultMaxExternalClients),
		clients:    make(map[string]*socket.Socket),
	}
	s.debouncer = NewBroadcastDebouncer(DefaultBroadcastWindow, s.BroadcastState, s.BroadcastQueue, s.BroadcastSettings)

	s.setupHandlers()

	return s, nil
}

// Debouncer returns the broadcast debouncer, which satisfies the
// controller's Notifier.
func (s *Server) Debouncer() *BroadcastDebouncer {
	return s.debouncer
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())

		remoteIP := ""
		if hs := client.Handshake(); hs != nil {
			remoteIP = hs.Address
		}
		_, evictedID := s.limiter.TryAdd(clientID, remoteIP)
		if evictedID != "" {
			s.mu.RLock()
			evicted := s.clients[evictedID]
			s.mu.RUnlock()
			if evicted != nil {
				log.Info().Str("id", evictedID).Msg("Evicting oldest external client")
				evicted.Disconnect(true)
			}
		}

		log.Info().Str("id", clientID).Str("ip", remoteIP).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushState(client)
			s.pushQueue(client)
			s.pushSettings(client)
		}()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		// Playback control events
		client.On("getState", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getState")
			s.pushState(client)
		})

		client.On("play", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("play")

			m := payloadMap(args)
			if m == nil {
				// Bare play resumes the loaded track.
				if !s.controller.State().Clone().IsPlaying {
					s.controller.TogglePlay()
				}
				return
			}

			track, ok := decodeTrack(m["track"])
			if !ok {
				log.Warn().Str("id", clientID).Msg("play without a track payload")
				return
			}
			override := decodeTracks(m["queue"])
			explicit, _ := m["explicit"].(bool)
			s.controller.PlaySong(context.Background(), track, override, explicit)
		})

		client.On("pause", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("pause")
			if s.controller.State().Clone().IsPlaying {
				s.controller.TogglePlay()
			}
		})

		client.On("toggle", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("toggle")
			s.controller.TogglePlay()
		})

		client.On("next", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("next")
			s.controller.PlayNext(context.Background())
		})

		client.On("prev", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("prev")
			s.controller.PlayPrev(context.Background())
		})

		client.On("seek", func(args ...any) {
			if len(args) > 0 {
				if pos, ok := args[0].(float64); ok {
					log.Debug().Str("id", clientID).Float64("pos", pos).Msg("seek")
					s.controller.Seek(pos)
				}
			}
		})

		client.On("volume", func(args ...any) {
			if len(args) > 0 {
				if vol, ok := args[0].(float64); ok {
					log.Debug().Str("id", clientID).Float64("vol", vol).Msg("volume")
					s.controller.SetVolume(vol)
				}
			}
		})

		client.On("setRandom", func(args ...any) {
			if m := payloadMap(args); m != nil {
				if v, ok := m["value"].(bool); ok {
					s.controller.SetShuffle(v)
				}
			}
		})

		client.On("setRepeat", func(args ...any) {
			if m := payloadMap(args); m != nil {
				if v, ok := m["value"].(bool); ok {
					s.controller.SetRepeat(v)
				}
			}
		})

		client.On("toggleLike", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("toggleLike")
			s.controller.ToggleLike()
		})

		// Queue events
		client.On("getQueue", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getQueue")
			s.pushQueue(client)
		})

		client.On("addToQueue", func(args ...any) {
			if m := payloadMap(args); m != nil {
				if track, ok := decodeTrack(m["track"]); ok {
					s.controller.AddToQueue(track)
					return
				}
				// Tolerate a bare track object as the payload.
				if track, ok := decodeTrack(m); ok {
					s.controller.AddToQueue(track)
				}
			}
		})

		// Media element events reported by the client's player surface
		client.On("timeUpdate", func(args ...any) {
			if len(args) == 0 {
				return
			}
			pos, ok := args[0].(float64)
			if !ok {
				return
			}
			s.controller.OnTimeUpdate(pos)
			if s.graph != nil {
				s.graph.OnTimeUpdate(pos, s.controller.State().Clone().Duration)
			}
		})

		client.On("loadedMetadata", func(args ...any) {
			if len(args) > 0 {
				if d, ok := args[0].(float64); ok {
					s.controller.OnLoadedMetadata(d)
				}
			}
		})

		client.On("ended", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("ended")
			s.controller.OnEnded(context.Background())
		})

		// Settings events
		client.On("getSettings", func(args ...any) {
			s.pushSettings(client)
		})

		client.On("updateSetting", func(args ...any) {
			m := payloadMap(args)
			if m == nil {
				return
			}
			key, _ := m["key"].(string)
			if key == "" {
				return
			}
			log.Debug().Str("id", clientID).Str("key", key).Msg("updateSetting")
			s.settings.Update(key, m["value"])
			s.debouncer.Trigger("settings")
		})

		if s.catalog != nil {
			s.catalog.RegisterHandlers(client)
		}
		if s.library != nil {
			s.library.RegisterHandlers(client)
		}
	})
}

// stateJSON builds the full player state pushed to clients: the transient
// playback flags plus the current track and cursor.
func (s *Server) stateJSON() map[string]interface{} {
	state := s.controller.State().ToJSON()
	if track, ok := s.controller.CurrentTrack(); ok {
		state["track"] = track
	} else {
		state["track"] = nil
	}
	state["cursor"] = s.controller.Queue().Cursor()
	return state
}

// pushState sends current state to a client.
func (s *Server) pushState(client *socket.Socket) {
	client.Emit("pushState", s.stateJSON())
}

// pushQueue sends the current queue to a client.
func (s *Server) pushQueue(client *socket.Socket) {
	client.Emit("pushQueue", s.controller.Queue().ToJSON())
}

// pushSettings sends the current settings to a client.
func (s *Server) pushSettings(client *socket.Socket) {
	client.Emit("pushSettings", s.settings.Get())
}

// isStateSame reports whether the state matches the last broadcast on every
// compared key.
func (s *Server) isStateSame(state map[string]interface{}) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.lastState == nil {
		return false
	}
	for _, key := range stateCompareKeys {
		if !reflect.DeepEqual(s.lastState[key], state[key]) {
			return false
		}
	}
	return true
}

// saveLastState records the state of the latest broadcast.
func (s *Server) saveLastState(state map[string]interface{}) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.lastState = state
}

// BroadcastState sends state to all connected clients. A state that differs
// from the previous broadcast only in playback position is skipped.
func (s *Server) BroadcastState() {
	state := s.stateJSON()
	if s.isStateSame(state) {
		return
	}
	s.saveLastState(state)
	s.io.Emit("pushState", state)

	if log.Debug().Enabled() {
		data, _ := json.Marshal(state)
		s.mu.RLock()
		clientCount := len(s.clients)
		s.mu.RUnlock()
		log.Debug().RawJSON("state", data).Int("clients", clientCount).Msg("Broadcast state")
	}
}

// BroadcastQueue sends the queue to all connected clients.
func (s *Server) BroadcastQueue() {
	s.io.Emit("pushQueue", s.controller.Queue().ToJSON())
}

// BroadcastSettings sends the settings to all connected clients.
func (s *Server) BroadcastSettings() {
	s.io.Emit("pushSettings", s.settings.Get())
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close closes the Socket.io server.
func (s *Server) Close() error {
	s.debouncer.Stop()
	s.io.Close(nil)
	return nil
}

// payloadMap extracts the first argument as an object payload.
func payloadMap(args []any) map[string]interface{} {
	if len(args) == 0 {
		return nil
	}
	m, _ := args[0].(map[string]interface{})
	return m
}

// decodeTrack converts a loosely-typed payload into a track record, going
// through JSON so that both flat and nested artist/thumbnail shapes are
// accepted.
func decodeTrack(v any) (streamapi.TrackRecord, bool) {
	var rec streamapi.TrackRecord
	data, err := json.Marshal(v)
	if err != nil {
		return rec, false
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, false
	}
	if rec.TrackID() == "" {
		return rec, false
	}
	return rec, true
}

// decodeTracks converts a payload list into track records, skipping entries
// without an ID.
func decodeTracks(v any) []streamapi.TrackRecord {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	recs := make([]streamapi.TrackRecord, 0, len(list))
	for _, item := range list {
		if rec, ok := decodeTrack(item); ok {
			recs = append(recs, rec)
		}
	}
	return recs
}
