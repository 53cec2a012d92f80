package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/krasaetanont/vueMusic/config"
	"github.com/krasaetanont/vueMusic/logger"
	"github.com/krasaetanont/vueMusic/repository"
	"github.com/krasaetanont/vueMusic/storage"
)

// APIHandler carries the dependencies shared by all API endpoints.
type APIHandler struct {
	musicRepo    repository.MusicRepository
	artistRepo   repository.ArtistRepository
	genreRepo    repository.GenreRepository
	playlistRepo repository.PlaylistRepository
	store        *storage.FileStore
	cfg          *config.Config
}

// NewAPIHandler creates an APIHandler.
func NewAPIHandler(
	musicRepo repository.MusicRepository,
	artistRepo repository.ArtistRepository,
	genreRepo repository.GenreRepository,
	playlistRepo repository.PlaylistRepository,
	store *storage.FileStore,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		musicRepo:    musicRepo,
		artistRepo:   artistRepo,
		genreRepo:    genreRepo,
		playlistRepo: playlistRepo,
		store:        store,
		cfg:          cfg,
	}
}

// HealthHandler reports service liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response body", logger.ErrorField(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// pathID extracts a numeric path variable.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}
