package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/krasaetanont/vueMusic/logger"
	"github.com/krasaetanont/vueMusic/model"
)

// GetMusicsHandler returns the whole library, most recent upload first.
func (h *APIHandler) GetMusicsHandler(w http.ResponseWriter, r *http.Request) {
	musics, err := h.musicRepo.ListMusics(r.Context())
	if err != nil {
		logger.Error("Failed to list musics", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	respondJSON(w, http.StatusOK, musics)
}

// GetMusicHandler returns one music with its artists, genres and playlists.
func (h *APIHandler) GetMusicHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid music ID")
		return
	}

	music, err := h.musicRepo.GetMusicDetail(r.Context(), id)
	if err != nil {
		logger.Error("Failed to load music", logger.Int64("musicId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if music == nil {
		respondError(w, http.StatusNotFound, "Music not found")
		return
	}
	respondJSON(w, http.StatusOK, music)
}

type createMusicRequest struct {
	Title     string  `json:"title"`
	FilePath  string  `json:"file_path"`
	LyricPath *string `json:"lyric_path"`
	ArtistIDs []int64 `json:"artist_ids"`
	GenreIDs  []int64 `json:"genre_ids"`
}

// CreateMusicHandler is the direct-insert counterpart of the upload endpoint:
// it records a music whose file already exists, linking the given artist and
// genre ids in the same transaction. At least one of each is required.
func (h *APIHandler) CreateMusicHandler(w http.ResponseWriter, r *http.Request) {
	var req createMusicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.FilePath) == "" {
		respondError(w, http.StatusBadRequest, "Title and file_path are required")
		return
	}
	if len(req.ArtistIDs) == 0 || len(req.GenreIDs) == 0 {
		respondError(w, http.StatusBadRequest, "At least one artist_id and one genre_id are required")
		return
	}

	tx, err := h.musicRepo.BeginTx(r.Context())
	if err != nil {
		logger.Error("Failed to begin music create transaction", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}

	music := &model.Music{
		Title:     req.Title,
		FilePath:  strings.TrimSpace(req.FilePath),
		LyricPath: req.LyricPath,
	}
	if _, err := h.musicRepo.CreateMusicWithTx(tx, music); err != nil {
		h.musicRepo.RollbackTx(tx)
		logger.Error("Failed to insert music", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	for _, artistID := range req.ArtistIDs {
		if err := h.musicRepo.LinkArtistWithTx(tx, music.ID, artistID); err != nil {
			h.musicRepo.RollbackTx(tx)
			logger.Error("Failed to link artist", logger.Int64("artistId", artistID), logger.ErrorField(err))
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}
	}
	for _, genreID := range req.GenreIDs {
		if err := h.musicRepo.LinkGenreWithTx(tx, music.ID, genreID); err != nil {
			h.musicRepo.RollbackTx(tx)
			logger.Error("Failed to link genre", logger.Int64("genreId", genreID), logger.ErrorField(err))
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}
	}
	if err := h.musicRepo.CommitTx(tx); err != nil {
		logger.Error("Failed to commit music create", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}

	created, err := h.musicRepo.GetMusicDetail(r.Context(), music.ID)
	if err != nil || created == nil {
		// The insert committed; fall back to the bare row.
		respondJSON(w, http.StatusCreated, music)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

type updateMusicRequest struct {
	Title     string   `json:"title"`
	FilePath  string   `json:"file_path"`
	LyricPath *string  `json:"lyric_path"`
	ArtistIDs *[]int64 `json:"artist_ids"`
	GenreIDs  *[]int64 `json:"genre_ids"`
}

// UpdateMusicHandler rewrites a music row and, when id arrays are provided,
// replaces its artist/genre link sets in the same transaction.
func (h *APIHandler) UpdateMusicHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid music ID")
		return
	}

	var req updateMusicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.musicRepo.BeginTx(r.Context())
	if err != nil {
		logger.Error("Failed to begin music update transaction", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}

	music := &model.Music{
		ID:        id,
		Title:     strings.TrimSpace(req.Title),
		FilePath:  strings.TrimSpace(req.FilePath),
		LyricPath: req.LyricPath,
	}
	found, err := h.musicRepo.UpdateMusicWithTx(tx, music)
	if err != nil {
		h.musicRepo.RollbackTx(tx)
		logger.Error("Failed to update music", logger.Int64("musicId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !found {
		h.musicRepo.RollbackTx(tx)
		respondError(w, http.StatusNotFound, "Music not found")
		return
	}

	if req.ArtistIDs != nil {
		if err := h.musicRepo.ReplaceArtistLinksWithTx(tx, id, *req.ArtistIDs); err != nil {
			h.musicRepo.RollbackTx(tx)
			logger.Error("Failed to replace artist links", logger.Int64("musicId", id), logger.ErrorField(err))
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}
	}
	if req.GenreIDs != nil {
		if err := h.musicRepo.ReplaceGenreLinksWithTx(tx, id, *req.GenreIDs); err != nil {
			h.musicRepo.RollbackTx(tx)
			logger.Error("Failed to replace genre links", logger.Int64("musicId", id), logger.ErrorField(err))
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}
	}
	if err := h.musicRepo.CommitTx(tx); err != nil {
		logger.Error("Failed to commit music update", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}

	updated, err := h.musicRepo.GetMusicDetail(r.Context(), id)
	if err != nil || updated == nil {
		respondJSON(w, http.StatusOK, music)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// DeleteMusicHandler removes a music row (association rows cascade) and then
// best-effort deletes its audio and lyric files. File removal failures are
// logged and reported in the response but never fail the delete itself.
func (h *APIHandler) DeleteMusicHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid music ID")
		return
	}

	tx, err := h.musicRepo.BeginTx(r.Context())
	if err != nil {
		logger.Error("Failed to begin music delete transaction", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete music")
		return
	}

	music, err := h.musicRepo.GetMusicRowWithTx(tx, id)
	if err != nil {
		h.musicRepo.RollbackTx(tx)
		logger.Error("Failed to look up music for delete", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete music")
		return
	}
	if music == nil {
		h.musicRepo.RollbackTx(tx)
		respondError(w, http.StatusNotFound, "Music not found")
		return
	}

	if _, err := h.musicRepo.DeleteMusicWithTx(tx, id); err != nil {
		h.musicRepo.RollbackTx(tx)
		logger.Error("Failed to delete music row", logger.Int64("musicId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete music")
		return
	}
	if err := h.musicRepo.CommitTx(tx); err != nil {
		logger.Error("Failed to commit music delete", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete music")
		return
	}

	// The row is gone; file cleanup is best-effort from here on.
	fileErrors := make([]string, 0)
	if err := h.store.RemovePublic(music.FilePath); err != nil {
		logger.Error("Failed to delete audio file",
			logger.String("file", music.FilePath),
			logger.ErrorField(err),
		)
		fileErrors = append(fileErrors, music.FilePath)
	}
	if music.LyricPath != nil {
		if err := h.store.RemovePublic(*music.LyricPath); err != nil {
			logger.Error("Failed to delete lyric file",
				logger.String("file", *music.LyricPath),
				logger.ErrorField(err),
			)
			fileErrors = append(fileErrors, *music.LyricPath)
		}
	}

	response := map[string]interface{}{
		"message":            "Music deleted successfully",
		"deleted_music_file": music.FilePath,
		"deleted_lyric_file": music.LyricPath,
	}
	if len(fileErrors) > 0 {
		response["file_cleanup_failed"] = fileErrors
	}
	respondJSON(w, http.StatusOK, response)
}
