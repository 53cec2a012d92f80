package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/krasaetanont/vueMusic/config"
	"github.com/krasaetanont/vueMusic/db"
	"github.com/krasaetanont/vueMusic/logger"
	"github.com/krasaetanont/vueMusic/repository"
	"github.com/krasaetanont/vueMusic/storage"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.CloseDB()

	if err := db.Migrate(cfg); err != nil {
		logger.Fatal("Failed to migrate database schema", logger.ErrorField(err))
	}

	store := storage.NewFileStore(cfg.MusicDir, cfg.LyricDir)
	if err := store.EnsureDirs(); err != nil {
		logger.Fatal("Failed to create storage directories", logger.ErrorField(err))
	}

	apiHandler := NewAPIHandler(
		repository.NewMusicRepository(db.DB),
		repository.NewArtistRepository(db.DB),
		repository.NewGenreRepository(db.DB),
		repository.NewPlaylistRepository(db.DB),
		store,
		cfg,
	)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      NewRouter(apiHandler, store),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}
	logger.Info("Server stopped")
}

// NewRouter wires every API route and the static file mounts.
func NewRouter(h *APIHandler, store *storage.FileStore) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// Preflight requests never reach a handler; the CORS middleware answers
	// them. The catch-all route exists so the middleware runs at all.
	router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(
		func(http.ResponseWriter, *http.Request) {})

	router.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	// Upload and lyric management
	router.HandleFunc("/api/upload", h.UploadMusicHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/upload/lyric/{id}", h.UploadLyricHandler).Methods(http.MethodPost, http.MethodPut)
	router.HandleFunc("/api/delete/lyric/{id}", h.DeleteLyricHandler).Methods(http.MethodDelete)

	// Musics
	router.HandleFunc("/api/musics", h.GetMusicsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/musics", h.CreateMusicHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/musics/{id}", h.GetMusicHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/musics/{id}", h.UpdateMusicHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/musics/{id}", h.DeleteMusicHandler).Methods(http.MethodDelete)

	// Artists
	router.HandleFunc("/api/artists", h.GetArtistsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/artists", h.CreateArtistHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/artists/{id}", h.UpdateArtistHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/artists/{id}", h.DeleteArtistHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/artist/{id}", h.GetArtistMusicsHandler).Methods(http.MethodGet)

	// Genres
	router.HandleFunc("/api/genres", h.GetGenresHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/genres", h.CreateGenreHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/genres/{id}", h.UpdateGenreHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/genres/{id}", h.DeleteGenreHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/genre/{id}", h.GetGenreMusicsHandler).Methods(http.MethodGet)

	// Playlists
	router.HandleFunc("/api/playlists", h.GetPlaylistsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists", h.CreatePlaylistHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}", h.GetPlaylistHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{id}", h.UpdatePlaylistHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/playlists/{id}", h.DeletePlaylistHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/musics", h.AddMusicToPlaylistHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}/musics/{musicId}", h.RemoveMusicFromPlaylistHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlist/{id}", h.GetPlaylistMusicsHandler).Methods(http.MethodGet)

	// Static serving of the stored files
	musicServer := http.FileServer(http.Dir(store.MusicDir()))
	router.PathPrefix(storage.MusicMount + "/").Handler(
		http.StripPrefix(storage.MusicMount+"/", musicServer))
	lyricServer := http.FileServer(http.Dir(store.LyricDir()))
	router.PathPrefix(storage.LyricMount + "/").Handler(
		http.StripPrefix(storage.LyricMount+"/", lyricServer))

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
