package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/krasaetanont/vueMusic/logger"
	"github.com/krasaetanont/vueMusic/repository"
)

// GetPlaylistsHandler returns all playlists ordered by name, each with its
// music count.
func (h *APIHandler) GetPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlistRepo.ListPlaylists(r.Context())
	if err != nil {
		logger.Error("Failed to list playlists", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	respondJSON(w, http.StatusOK, playlists)
}

// GetPlaylistHandler returns one playlist's own metadata.
func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid playlist ID")
		return
	}

	playlist, err := h.playlistRepo.GetPlaylistSummary(r.Context(), id)
	if err != nil {
		logger.Error("Failed to look up playlist", logger.Int64("playlistId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if playlist == nil {
		respondError(w, http.StatusNotFound, "Playlist not found")
		return
	}
	respondJSON(w, http.StatusOK, playlist)
}

// GetPlaylistMusicsHandler returns the musics in one playlist. A missing
// playlist is 404; an empty playlist is an empty array.
func (h *APIHandler) GetPlaylistMusicsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid playlist ID")
		return
	}

	playlist, err := h.playlistRepo.GetPlaylistByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to look up playlist", logger.Int64("playlistId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if playlist == nil {
		respondError(w, http.StatusNotFound, "Playlist not found")
		return
	}

	musics, err := h.musicRepo.ListMusicsByPlaylist(r.Context(), id)
	if err != nil {
		logger.Error("Failed to list musics by playlist", logger.Int64("playlistId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	respondJSON(w, http.StatusOK, musics)
}

// CreatePlaylistHandler inserts a new playlist; a duplicate name is a conflict.
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
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

	playlist, err := h.playlistRepo.CreatePlaylist(r.Context(), name)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "Playlist already exists")
			return
		}
		logger.Error("Failed to create playlist", logger.String("name", name), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	respondJSON(w, http.StatusCreated, playlist)
}

// UpdatePlaylistHandler renames a playlist.
func (h *APIHandler) UpdatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid playlist ID")
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

	playlist, err := h.playlistRepo.UpdatePlaylist(r.Context(), id, name)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "Playlist already exists")
			return
		}
		logger.Error("Failed to update playlist", logger.Int64("playlistId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if playlist == nil {
		respondError(w, http.StatusNotFound, "Playlist not found")
		return
	}
	respondJSON(w, http.StatusOK, playlist)
}

// DeletePlaylistHandler removes a playlist. Association rows cascade; musics
// are untouched.
func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid playlist ID")
		return
	}

	found, err := h.playlistRepo.DeletePlaylist(r.Context(), id)
	if err != nil {
		logger.Error("Failed to delete playlist", logger.Int64("playlistId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "Playlist not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Playlist deleted successfully"})
}

type addPlaylistMusicRequest struct {
	MusicID int64 `json:"music_id"`
}

// AddMusicToPlaylistHandler links a music into a playlist. Missing playlist
// or music are distinct 404s; a pair that already exists is a conflict.
func (h *APIHandler) AddMusicToPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid playlist ID")
		return
	}
	var req addPlaylistMusicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MusicID == 0 {
		respondError(w, http.StatusBadRequest, "music_id is required")
		return
	}

	err = h.playlistRepo.AddMusic(r.Context(), playlistID, req.MusicID)
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, map[string]interface{}{
			"message":     "Music added to playlist",
			"music_id":    req.MusicID,
			"playlist_id": playlistID,
		})
	case errors.Is(err, repository.ErrPlaylistNotFound):
		respondError(w, http.StatusNotFound, "Playlist not found")
	case errors.Is(err, repository.ErrMusicNotFound):
		respondError(w, http.StatusNotFound, "Music not found")
	case errors.Is(err, repository.ErrAlreadyInPlaylist):
		respondError(w, http.StatusConflict, "Music already in playlist")
	default:
		logger.Error("Failed to add music to playlist",
			logger.Int64("playlistId", playlistID),
			logger.Int64("musicId", req.MusicID),
			logger.ErrorField(err),
		)
		respondError(w, http.StatusInternalServerError, "Database error")
	}
}

// RemoveMusicFromPlaylistHandler unlinks a music from a playlist; a pair that
// never existed is 404.
func (h *APIHandler) RemoveMusicFromPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid playlist ID")
		return
	}
	musicID, err := pathID(r, "musicId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid music ID")
		return
	}

	found, err := h.playlistRepo.RemoveMusic(r.Context(), playlistID, musicID)
	if err != nil {
		logger.Error("Failed to remove music from playlist",
			logger.Int64("playlistId", playlistID),
			logger.Int64("musicId", musicID),
			logger.ErrorField(err),
		)
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "Music not found in playlist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Music removed from playlist"})
}
