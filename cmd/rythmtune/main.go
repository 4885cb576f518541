// Package main is the entry point for the RythmTune playback backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rythmtune/rythmtune-backend/internal/audio"
	"github.com/rythmtune/rythmtune-backend/internal/domain/player"
	"github.com/rythmtune/rythmtune-backend/internal/domain/settings"
	"github.com/rythmtune/rythmtune-backend/internal/infra/library"
	"github.com/rythmtune/rythmtune-backend/internal/infra/streamapi"
	"github.com/rythmtune/rythmtune-backend/internal/transport/socketio"
	"github.com/rythmtune/rythmtune-backend/internal/version"
)

func main() {
	// Command line flags
	port := flag.String("port", "3001", "HTTP server port")
	apiURL := flag.String("api-url", streamapi.DefaultBaseURL, "Media streaming API base URL")
	dbPath := flag.String("db", "rythmtune.db", "Library database path")
	settingsFile := flag.String("settings-file", "settings.json", "Guest settings fallback file")
	userID := flag.String("user", "", "User ID for favorites, history and profile settings (empty runs as guest)")
	staticDir := flag.String("static", "", "Directory to serve static files from (optional)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Streaming Music Playback Backend")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("port", *port).
		Str("api_url", *apiURL).
		Str("db", *dbPath).
		Bool("authenticated", *userID != "").
		Msg("Configuration")

	// Library database
	db := library.NewDB(*dbPath)
	if err := db.Open(); err != nil {
		log.Fatal().Err(err).Msg("Failed to open library database")
	}
	defer db.Close()
	dao := library.NewDAO(db)

	// Settings: authenticated sessions use the profile record, guests a
	// local file.
	var persister settings.Persister
	if *userID != "" {
		persister = settings.NewProfilePersister(dao, *userID)
	} else {
		persister = settings.NewFilePersister(*settingsFile)
	}
	settingsStore := settings.NewStore(persister)

	// Streaming API client
	api := streamapi.NewClient(streamapi.WithBaseURL(*apiURL))

	// Audio output graph. No device backend is wired in this build, so the
	// graph runs degraded and playback is unaffected.
	graph := audio.NewGraph(settingsStore, nil)
	settingsStore.OnUpdate(graph.OnSettingsChanged)

	// Playback controller
	controller := player.NewController(api,
		player.WithLibrary(dao),
		player.WithUser(*userID),
		player.WithElement(audio.NewSink(graph)),
	)

	// Socket.io server
	catalog := socketio.NewCatalogHandlers(api)
	libraryHandlers := socketio.NewLibraryHandlers(dao, controller, *userID)
	socketServer, err := socketio.NewServer(controller, settingsStore, graph, catalog, libraryHandlers)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	// Push broadcasts are driven by controller notifications.
	controller.SetNotifier(socketServer.Debouncer())

	// Setup HTTP server
	mux := http.NewServeMux()

	// Socket.io endpoint
	mux.Handle("/socket.io/", socketServer)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Version endpoint
	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(version.GetInfo())
	})

	// Basic state endpoint (REST fallback)
	mux.HandleFunc("/api/v1/getState", func(w http.ResponseWriter, r *http.Request) {
		state := controller.State().ToJSON()
		if track, ok := controller.CurrentTrack(); ok {
			state["track"] = track
		}
		state["cursor"] = controller.Queue().Cursor()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(state); err != nil {
			log.Error().Err(err).Msg("Failed to encode state")
		}
	})

	// Audio graph status endpoint
	mux.HandleFunc("/api/v1/audio", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(graph.Status())
	})

	// Serve static files if directory specified (SPA mode)
	if *staticDir != "" {
		log.Info().Str("dir", *staticDir).Msg("Serving static files")
		fs := http.FileServer(http.Dir(*staticDir))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := *staticDir + r.URL.Path
			if r.URL.Path == "/" {
				path = *staticDir + "/index.html"
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				// For SPA routing, serve index.html for non-existing paths
				http.ServeFile(w, r, *staticDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
	}

	// Start HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", ":"+*port).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}
