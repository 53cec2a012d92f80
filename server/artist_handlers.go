package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/krasaetanont/vueMusic/logger"
	"github.com/krasaetanont/vueMusic/repository"
)

// GetArtistsHandler returns all artists ordered by name.
func (h *APIHandler) GetArtistsHandler(w http.ResponseWriter, r *http.Request) {
	artists, err := h.artistRepo.ListArtists(r.Context())
	if err != nil {
		logger.Error("Failed to list artists", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	respondJSON(w, http.StatusOK, artists)
}

// GetArtistMusicsHandler returns the musics linked to one artist. A missing
// artist is 404; an artist without musics is an empty array.
func (h *APIHandler) GetArtistMusicsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid artist ID")
		return
	}

	artist, err := h.artistRepo.GetArtistByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to look up artist", logger.Int64("artistId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if artist == nil {
		respondError(w, http.StatusNotFound, "Artist not found")
		return
	}

	musics, err := h.musicRepo.ListMusicsByArtist(r.Context(), id)
	if err != nil {
		logger.Error("Failed to list musics by artist", logger.Int64("artistId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	respondJSON(w, http.StatusOK, musics)
}

type nameRequest struct {
	Name string `json:"name"`
}

// CreateArtistHandler inserts a new artist; a duplicate name is a conflict.
func (h *APIHandler) CreateArtistHandler(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}

	artist, err := h.artistRepo.CreateArtist(r.Context(), name)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "Artist already exists")
			return
		}
		logger.Error("Failed to create artist", logger.String("name", name), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	respondJSON(w, http.StatusCreated, artist)
}

// UpdateArtistHandler renames an artist.
func (h *APIHandler) UpdateArtistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid artist ID")
		return
	}
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}

	artist, err := h.artistRepo.UpdateArtist(r.Context(), id, name)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "Artist already exists")
			return
		}
		logger.Error("Failed to update artist", logger.Int64("artistId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if artist == nil {
		respondError(w, http.StatusNotFound, "Artist not found")
		return
	}
	respondJSON(w, http.StatusOK, artist)
}

// DeleteArtistHandler removes an artist. Association rows cascade; musics and
// their files are untouched.
func (h *APIHandler) DeleteArtistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid artist ID")
		return
	}

	found, err := h.artistRepo.DeleteArtist(r.Context(), id)
	if err != nil {
		logger.Error("Failed to delete artist", logger.Int64("artistId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "Artist not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Artist deleted successfully"})
}
