package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/krasaetanont/vueMusic/logger"
	"github.com/krasaetanont/vueMusic/repository"
)

// GetGenresHandler returns all genres ordered by name.
func (h *APIHandler) GetGenresHandler(w http.ResponseWriter, r *http.Request) {
	genres, err := h.genreRepo.ListGenres(r.Context())
	if err != nil {
		logger.Error("Failed to list genres", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	respondJSON(w, http.StatusOK, genres)
}

// GetGenreMusicsHandler returns the musics linked to one genre. A missing
// genre is 404; a genre without musics is an empty array.
func (h *APIHandler) GetGenreMusicsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid genre ID")
		return
	}

	genre, err := h.genreRepo.GetGenreByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to look up genre", logger.Int64("genreId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if genre == nil {
		respondError(w, http.StatusNotFound, "Genre not found")
		return
	}

	musics, err := h.musicRepo.ListMusicsByGenre(r.Context(), id)
	if err != nil {
		logger.Error("Failed to list musics by genre", logger.Int64("genreId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	respondJSON(w, http.StatusOK, musics)
}

// CreateGenreHandler inserts a new genre; a duplicate name is a conflict.
func (h *APIHandler) CreateGenreHandler(w http.ResponseWriter, r *http.Request) {
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

	genre, err := h.genreRepo.CreateGenre(r.Context(), name)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "Genre already exists")
			return
		}
		logger.Error("Failed to create genre", logger.String("name", name), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	respondJSON(w, http.StatusCreated, genre)
}

// UpdateGenreHandler renames a genre.
func (h *APIHandler) UpdateGenreHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid genre ID")
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

	genre, err := h.genreRepo.UpdateGenre(r.Context(), id, name)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "Genre already exists")
			return
		}
		logger.Error("Failed to update genre", logger.Int64("genreId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if genre == nil {
		respondError(w, http.StatusNotFound, "Genre not found")
		return
	}
	respondJSON(w, http.StatusOK, genre)
}

// DeleteGenreHandler removes a genre. Association rows cascade; musics are
// untouched.
func (h *APIHandler) DeleteGenreHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid genre ID")
		return
	}

	found, err := h.genreRepo.DeleteGenre(r.Context(), id)
	if err != nil {
		logger.Error("Failed to delete genre", logger.Int64("genreId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "Genre not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Genre deleted successfully"})
}
