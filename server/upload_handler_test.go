package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadMusic(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := uploadRequest(t, map[string]string{
		"title":  "Song A",
		"artist": "Band X",
		"genre":  "Rock",
	}, "track.mp3", "audio/mpeg", "fake audio bytes")

	rec := env.do(t, http.MethodPost, "/api/upload", body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Message string `json:"message"`
		Music   struct {
			ID       int64  `json:"id"`
			Title    string `json:"title"`
			FilePath string `json:"file_path"`
			Artists  []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Genres []struct {
				Name string `json:"name"`
			} `json:"genres"`
		} `json:"music"`
	}
	decodeJSON(t, rec, &resp)

	assert.Equal(t, "Upload successful", resp.Message)
	assert.Equal(t, "Song A", resp.Music.Title)
	require.Len(t, resp.Music.Artists, 1)
	assert.Equal(t, "Band X", resp.Music.Artists[0].Name)
	require.Len(t, resp.Music.Genres, 1)
	assert.Equal(t, "Rock", resp.Music.Genres[0].Name)
	require.True(t, strings.HasPrefix(resp.Music.FilePath, "/music/"), resp.Music.FilePath)

	storedName := strings.TrimPrefix(resp.Music.FilePath, "/music/")
	data, err := os.ReadFile(filepath.Join(env.store.MusicDir(), storedName))
	require.NoError(t, err)
	assert.Equal(t, "fake audio bytes", string(data))

	// The stored file is reachable through the static mount.
	fileRec := env.do(t, http.MethodGet, resp.Music.FilePath, nil, "")
	require.Equal(t, http.StatusOK, fileRec.Code)
	assert.Equal(t, "fake audio bytes", fileRec.Body.String())
}

func TestUploadReusesExistingArtistAndGenre(t *testing.T) {
	env := newTestEnv(t)

	env.uploadMusic(t, "Song A", "Band X", "Rock")
	env.uploadMusic(t, "Song B", "Band X", "Rock")

	assert.Equal(t, 2, env.countRows(t, "musics"))
	assert.Equal(t, 1, env.countRows(t, "artists"))
	assert.Equal(t, 1, env.countRows(t, "genres"))
}

func TestUploadMissingMetadataLeavesNoFile(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := uploadRequest(t, map[string]string{
		"title":  "Song A",
		"artist": "Band X",
		// genre deliberately absent
	}, "track.mp3", "audio/mpeg", "bytes")

	rec := env.do(t, http.MethodPost, "/api/upload", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Title, artist, and genre are required")

	assert.Equal(t, 0, env.countRows(t, "musics"))
	assert.Equal(t, 0, env.musicDirEntries(t))
}

func TestUploadRejectsNonAudioFile(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := uploadRequest(t, map[string]string{
		"title":  "Song A",
		"artist": "Band X",
		"genre":  "Rock",
	}, "notes.txt", "text/plain", "not audio")

	rec := env.do(t, http.MethodPost, "/api/upload", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only audio files are allowed")

	assert.Equal(t, 0, env.countRows(t, "musics"))
	assert.Equal(t, 0, env.musicDirEntries(t))
}

func TestUploadWithoutFile(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := uploadRequest(t, map[string]string{
		"title":  "Song A",
		"artist": "Band X",
		"genre":  "Rock",
	}, "", "", "")

	rec := env.do(t, http.MethodPost, "/api/upload", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file uploaded")
}

func TestUploadRemovesFileWhenTransactionFails(t *testing.T) {
	env := newTestEnv(t)

	// Breaking the link table makes the transaction fail after the audio
	// file has already been written.
	_, err := env.sqlDB.Exec(`DROP TABLE music_artists`)
	require.NoError(t, err)

	body, contentType := uploadRequest(t, map[string]string{
		"title":  "Song A",
		"artist": "Band X",
		"genre":  "Rock",
	}, "track.mp3", "audio/mpeg", "fake audio bytes")

	rec := env.do(t, http.MethodPost, "/api/upload", body, contentType)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to upload file")

	assert.Equal(t, 0, env.countRows(t, "musics"), "the transaction must roll back")
	assert.Equal(t, 0, env.countRows(t, "artists"))
	assert.Equal(t, 0, env.musicDirEntries(t), "the written file must be removed")
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	env := newTestEnvWithUploadLimit(t, 2)

	// Declared file size over the limit.
	body, contentType := uploadRequest(t, map[string]string{
		"title":  "Song A",
		"artist": "Band X",
		"genre":  "Rock",
	}, "track.mp3", "audio/mpeg", "abc")
	rec := env.do(t, http.MethodPost, "/api/upload", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "File too large")

	// Body large enough to trip the request reader cap during parsing.
	body, contentType = uploadRequest(t, map[string]string{
		"title":  "Song A",
		"artist": "Band X",
		"genre":  "Rock",
	}, "track.mp3", "audio/mpeg", strings.Repeat("a", 2<<20))
	rec = env.do(t, http.MethodPost, "/api/upload", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "File too large")

	assert.Equal(t, 0, env.musicDirEntries(t))
}

func TestUploadLyricRoundtrip(t *testing.T) {
	env := newTestEnv(t)
	musicID := env.uploadMusic(t, "Song A", "Band X", "Rock")
	lyricURL := "/api/upload/lyric/" + itoa(musicID)

	rec := env.do(t, http.MethodPost, lyricURL, strings.NewReader("<p>la la la</p>"), "text/html")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Message string `json:"message"`
		Music   struct {
			LyricPath *string `json:"lyric_path"`
		} `json:"music"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "Lyric uploaded", resp.Message)
	require.NotNil(t, resp.Music.LyricPath)
	assert.Equal(t, "/lyrics/"+itoa(musicID)+".html", *resp.Music.LyricPath)

	data, err := os.ReadFile(filepath.Join(env.store.LyricDir(), itoa(musicID)+".html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>la la la</p>", string(data))

	// Replacing the lyric overwrites the same document.
	rec = env.do(t, http.MethodPut, lyricURL, strings.NewReader("<p>new text</p>"), "text/html")
	require.Equal(t, http.StatusOK, rec.Code)
	data, err = os.ReadFile(filepath.Join(env.store.LyricDir(), itoa(musicID)+".html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>new text</p>", string(data))
}

func TestUploadLyricMissingMusicLeavesNoFile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/upload/lyric/999", strings.NewReader("<p>text</p>"), "text/html")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Music not found")

	_, err := os.Stat(filepath.Join(env.store.LyricDir(), "999.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestUploadLyricRemovesFileWhenUpdateFails(t *testing.T) {
	env := newTestEnv(t)
	musicID := env.uploadMusic(t, "Song A", "Band X", "Rock")

	// Breaking the musics table makes the path update fail after the lyric
	// document has already been written.
	_, err := env.sqlDB.Exec(`DROP TABLE musics`)
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/upload/lyric/"+itoa(musicID), strings.NewReader("<p>text</p>"), "text/html")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to upload lyric")

	_, err = os.Stat(filepath.Join(env.store.LyricDir(), itoa(musicID)+".html"))
	assert.True(t, os.IsNotExist(err), "the written lyric file must be removed")
}

func TestUploadLyricEmptyBody(t *testing.T) {
	env := newTestEnv(t)
	musicID := env.uploadMusic(t, "Song A", "Band X", "Rock")

	rec := env.do(t, http.MethodPost, "/api/upload/lyric/"+itoa(musicID), strings.NewReader("   "), "text/html")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Lyric text is required")
}

func TestDeleteLyric(t *testing.T) {
	env := newTestEnv(t)
	musicID := env.uploadMusic(t, "Song A", "Band X", "Rock")

	rec := env.do(t, http.MethodPost, "/api/upload/lyric/"+itoa(musicID), strings.NewReader("<p>text</p>"), "text/html")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/delete/lyric/"+itoa(musicID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Lyric deleted")

	_, err := os.Stat(filepath.Join(env.store.LyricDir(), itoa(musicID)+".html"))
	assert.True(t, os.IsNotExist(err))

	// Detaching again is a no-op success.
	rec = env.do(t, http.MethodDelete, "/api/delete/lyric/"+itoa(musicID), nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No lyric attached")
}

func TestDeleteLyricMissingMusic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/delete/lyric/999", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
