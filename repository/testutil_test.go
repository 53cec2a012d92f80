package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/krasaetanont/vueMusic/db"
	"github.com/krasaetanont/vueMusic/model"
)

// setupTestDB creates a SQLite database in a temp dir, migrated with the same
// models as production, with foreign key enforcement on so cascade behavior
// matches MySQL.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrateModels(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get underlying sql.DB: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

// createMusicWithLinks inserts a music linked to one artist and one genre the
// same way the upload workflow does, and returns the music id.
func createMusicWithLinks(t *testing.T, sqlDB *sql.DB, title, artistName, genreName string) int64 {
	t.Helper()

	musicRepo := NewMusicRepository(sqlDB)
	artistRepo := NewArtistRepository(sqlDB)
	genreRepo := NewGenreRepository(sqlDB)

	tx, err := musicRepo.BeginTx(context.Background())
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}

	artistID, err := artistRepo.GetOrCreateByNameWithTx(tx, artistName)
	if err != nil {
		t.Fatalf("failed to upsert artist: %v", err)
	}
	genreID, err := genreRepo.GetOrCreateByNameWithTx(tx, genreName)
	if err != nil {
		t.Fatalf("failed to upsert genre: %v", err)
	}

	music := &model.Music{Title: title, FilePath: "/music/" + title + ".mp3"}
	if _, err := musicRepo.CreateMusicWithTx(tx, music); err != nil {
		t.Fatalf("failed to insert music: %v", err)
	}
	if err := musicRepo.LinkArtistWithTx(tx, music.ID, artistID); err != nil {
		t.Fatalf("failed to link artist: %v", err)
	}
	if err := musicRepo.LinkGenreWithTx(tx, music.ID, genreID); err != nil {
		t.Fatalf("failed to link genre: %v", err)
	}
	if err := musicRepo.CommitTx(tx); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return music.ID
}

func countRows(t *testing.T, sqlDB *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := sqlDB.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}
	return n
}
