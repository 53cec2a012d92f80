package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/krasaetanont/vueMusic/config"
	"github.com/krasaetanont/vueMusic/logger"
	"github.com/krasaetanont/vueMusic/model"
)

// Migrate opens a short-lived GORM connection, brings the schema up to date
// and closes it again. The repositories talk to the database through the
// plain *sql.DB pool, GORM is only used for schema management.
func Migrate(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database for migration: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	defer sqlDB.Close()

	if err := AutoMigrateModels(gdb); err != nil {
		return err
	}

	logger.Info("Database schema migrated")
	return nil
}

// AutoMigrateModels migrates every table of the library schema. The join
// tables carry composite primary keys and ON DELETE CASCADE foreign keys, so
// association rows disappear with their music, artist, genre or playlist.
func AutoMigrateModels(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&model.Artist{},
		&model.Genre{},
		&model.Playlist{},
		&model.Music{},
		&model.MusicArtist{},
		&model.MusicGenre{},
		&model.MusicPlaylist{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	return nil
}
