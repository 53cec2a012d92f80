package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/krasaetanont/vueMusic/config"
	"github.com/krasaetanont/vueMusic/db"
	"github.com/krasaetanont/vueMusic/repository"
	"github.com/krasaetanont/vueMusic/storage"
)

type testEnv struct {
	router http.Handler
	sqlDB  *sql.DB
	store  *storage.FileStore
}

// newTestEnv builds a full router over a throwaway sqlite database and
// temporary storage directories.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithUploadLimit(t, 50<<20)
}

func newTestEnvWithUploadLimit(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrateModels(gdb))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	base := t.TempDir()
	store := storage.NewFileStore(filepath.Join(base, "musicFiles"), filepath.Join(base, "lyrics"))
	require.NoError(t, store.EnsureDirs())

	cfg := &config.Config{
		MusicDir:      store.MusicDir(),
		LyricDir:      store.LyricDir(),
		MaxUploadSize: maxUpload,
	}

	handler := NewAPIHandler(
		repository.NewMusicRepository(sqlDB),
		repository.NewArtistRepository(sqlDB),
		repository.NewGenreRepository(sqlDB),
		repository.NewPlaylistRepository(sqlDB),
		store,
		cfg,
	)

	return &testEnv{
		router: NewRouter(handler, store),
		sqlDB:  sqlDB,
		store:  store,
	}
}

// do runs a request through the router and returns the recorded response.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return e.do(t, method, path, body, "application/json")
}

// uploadRequest builds a multipart body for the upload endpoint. The file part
// carries an explicit Content-Type header, which a plain CreateFormFile call
// cannot set.
func uploadRequest(t *testing.T, fields map[string]string, fileName, fileType, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}

	if fileName != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="musicFile"; filename="`+fileName+`"`)
		header.Set("Content-Type", fileType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = io.Copy(part, strings.NewReader(fileContent))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

// uploadMusic uploads one track and returns its id.
func (e *testEnv) uploadMusic(t *testing.T, title, artist, genre string) int64 {
	t.Helper()
	body, contentType := uploadRequest(t, map[string]string{
		"title":  title,
		"artist": artist,
		"genre":  genre,
	}, "track.mp3", "audio/mpeg", "fake audio bytes")

	rec := e.do(t, http.MethodPost, "/api/upload", body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Music struct {
			ID int64 `json:"id"`
		} `json:"music"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotZero(t, resp.Music.ID)
	return resp.Music.ID
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func (e *testEnv) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.sqlDB.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func (e *testEnv) musicDirEntries(t *testing.T) int {
	t.Helper()
	entries, err := filepath.Glob(filepath.Join(e.store.MusicDir(), "*"))
	require.NoError(t, err)
	return len(entries)
}
