package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/krasaetanont/vueMusic/logger"
	"github.com/krasaetanont/vueMusic/model"
	"github.com/krasaetanont/vueMusic/storage"
)

// allowedAudioTypes lists explicitly accepted media types. Anything else must
// at least declare an audio/ prefix.
var allowedAudioTypes = map[string]bool{
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/wav":   true,
	"audio/ogg":   true,
	"audio/mp4":   true,
	"audio/x-m4a": true,
}

func isAllowedAudioType(mediaType string) bool {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	return allowedAudioTypes[mediaType] || strings.HasPrefix(mediaType, "audio/")
}

// UploadMusicHandler accepts a multipart upload of one audio file plus title,
// artist and genre fields. The file is written to the audio store before the
// database transaction opens; every failure after that point removes the file
// again, so the filesystem and the database never disagree about whether the
// upload happened.
func (h *APIHandler) UploadMusicHandler(w http.ResponseWriter, r *http.Request) {
	// Slack on top of the file limit covers the multipart framing and the
	// metadata fields.
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize+(1<<20))

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondError(w, http.StatusBadRequest, "File too large. Maximum size is 50MB.")
			return
		}
		respondError(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("musicFile")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	title := strings.TrimSpace(r.FormValue("title"))
	artistName := strings.TrimSpace(r.FormValue("artist"))
	genreName := strings.TrimSpace(r.FormValue("genre"))
	if title == "" || artistName == "" || genreName == "" {
		respondError(w, http.StatusBadRequest, "Title, artist, and genre are required")
		return
	}

	if !isAllowedAudioType(header.Header.Get("Content-Type")) {
		respondError(w, http.StatusBadRequest, "Invalid file type. Only audio files are allowed.")
		return
	}
	if header.Size > h.cfg.MaxUploadSize {
		respondError(w, http.StatusBadRequest, "File too large. Maximum size is 50MB.")
		return
	}

	// Tentative write: the audio file lands on disk first so a database
	// failure can compensate with a plain delete.
	storedName, err := h.store.SaveAudio(file, header.Filename)
	if err != nil {
		logger.Error("Failed to store uploaded audio file", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	ctx := r.Context()
	tx, err := h.musicRepo.BeginTx(ctx)
	if err != nil {
		h.compensateAudio(storedName)
		logger.Error("Failed to begin upload transaction", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	fail := func(step string, err error) {
		h.musicRepo.RollbackTx(tx)
		h.compensateAudio(storedName)
		logger.Error("Upload failed, rolled back",
			logger.String("step", step),
			logger.String("title", title),
			logger.ErrorField(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to upload file")
	}

	artistID, err := h.artistRepo.GetOrCreateByNameWithTx(tx, artistName)
	if err != nil {
		fail("upsert artist", err)
		return
	}
	genreID, err := h.genreRepo.GetOrCreateByNameWithTx(tx, genreName)
	if err != nil {
		fail("upsert genre", err)
		return
	}

	music := &model.Music{
		Title:    title,
		FilePath: storage.AudioPublicPath(storedName),
	}
	if _, err := h.musicRepo.CreateMusicWithTx(tx, music); err != nil {
		fail("insert music", err)
		return
	}
	if err := h.musicRepo.LinkArtistWithTx(tx, music.ID, artistID); err != nil {
		fail("link artist", err)
		return
	}
	if err := h.musicRepo.LinkGenreWithTx(tx, music.ID, genreID); err != nil {
		fail("link genre", err)
		return
	}
	if err := h.musicRepo.CommitTx(tx); err != nil {
		fail("commit", err)
		return
	}

	music.Artists = []model.Artist{{ID: artistID, Name: artistName}}
	music.Genres = []model.Genre{{ID: genreID, Name: genreName}}

	logger.Info("Music uploaded",
		logger.Int64("musicId", music.ID),
		logger.String("title", title),
		logger.String("file", music.FilePath),
	)
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Upload successful",
		"music":   music,
	})
}

// compensateAudio removes a just-written audio file after a failed upload.
func (h *APIHandler) compensateAudio(storedName string) {
	if err := h.store.RemoveAudio(storedName); err != nil {
		logger.Error("Failed to remove audio file after aborted upload",
			logger.String("file", storedName),
			logger.ErrorField(err),
		)
	}
}

// UploadLyricHandler attaches (or replaces) the lyric document of a music.
// The body is the raw lyric text/HTML. The file write happens first; a
// missing music row or a failed database update removes the file again.
func (h *APIHandler) UploadLyricHandler(w http.ResponseWriter, r *http.Request) {
	musicID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid music ID")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		respondError(w, http.StatusBadRequest, "Lyric text is required")
		return
	}

	if _, err := h.store.WriteLyric(musicID, body); err != nil {
		logger.Error("Failed to write lyric file",
			logger.Int64("musicId", musicID),
			logger.ErrorField(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to upload lyric")
		return
	}

	publicPath := storage.LyricPublicPath(musicID)
	found, err := h.musicRepo.SetLyricPath(r.Context(), musicID, &publicPath)
	if err != nil {
		h.compensateLyric(musicID)
		logger.Error("Failed to record lyric path",
			logger.Int64("musicId", musicID),
			logger.ErrorField(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to upload lyric")
		return
	}
	if !found {
		h.compensateLyric(musicID)
		respondError(w, http.StatusNotFound, "Music not found")
		return
	}

	music, err := h.musicRepo.GetMusicRow(r.Context(), musicID)
	if err != nil {
		logger.Error("Failed to reload music after lyric upload", logger.ErrorField(err))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Lyric uploaded",
		"music":   music,
	})
}

// compensateLyric removes a just-written lyric document after a failed attach.
func (h *APIHandler) compensateLyric(musicID int64) {
	if err := h.store.RemoveLyric(musicID); err != nil {
		logger.Error("Failed to remove lyric file after aborted attach",
			logger.Int64("musicId", musicID),
			logger.ErrorField(err),
		)
	}
}

// DeleteLyricHandler detaches the lyric document of a music: inside one
// transaction the row is confirmed, lyric_path cleared and the file removed.
// A failed file removal rolls the transaction back so the database never
// claims "no lyric" while the document still exists. A commit failure after
// the file is removed leaves the row pointing at the deleted document until
// the next attach rewrites both. A music without a lyric is a no-op success.
func (h *APIHandler) DeleteLyricHandler(w http.ResponseWriter, r *http.Request) {
	musicID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid music ID")
		return
	}

	tx, err := h.musicRepo.BeginTx(r.Context())
	if err != nil {
		logger.Error("Failed to begin lyric delete transaction", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete lyric")
		return
	}

	music, err := h.musicRepo.GetMusicRowWithTx(tx, musicID)
	if err != nil {
		h.musicRepo.RollbackTx(tx)
		logger.Error("Failed to look up music for lyric delete", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete lyric")
		return
	}
	if music == nil {
		h.musicRepo.RollbackTx(tx)
		respondError(w, http.StatusNotFound, "Music not found")
		return
	}
	if music.LyricPath == nil {
		h.musicRepo.RollbackTx(tx)
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"message": "No lyric attached",
			"music":   music,
		})
		return
	}

	if _, err := h.musicRepo.SetLyricPathWithTx(tx, musicID, nil); err != nil {
		h.musicRepo.RollbackTx(tx)
		logger.Error("Failed to clear lyric path", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete lyric")
		return
	}

	if err := h.store.RemoveLyric(musicID); err != nil {
		h.musicRepo.RollbackTx(tx)
		logger.Error("Failed to delete lyric file",
			logger.Int64("musicId", musicID),
			logger.ErrorField(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to delete lyric file")
		return
	}

	if err := h.musicRepo.CommitTx(tx); err != nil {
		logger.Error("Failed to commit lyric delete", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete lyric")
		return
	}

	music.LyricPath = nil
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Lyric deleted",
		"music":   music,
	})
}
