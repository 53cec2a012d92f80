package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ListenAddr string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	MusicDir   string // Directory for uploaded audio files, served under /music/
	LyricDir   string // Directory for generated lyric documents, served under /lyrics/
	// Upload limits
	MaxUploadSize int64 // Maximum accepted audio file size in bytes
	// Logging
	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt64 gets an environment variable as int64 or returns a default value.
func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	dataBase := getEnv("DATA_DIR", "data")

	return &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":3000"),
		DBHost:        getEnv("DB_HOST", "127.0.0.1"),
		DBPort:        getEnv("DB_PORT", "3306"),
		DBUser:        getEnv("DB_USER", "root"),
		DBPassword:    os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:        getEnv("DB_NAME", "musicdb"),
		MusicDir:      getEnv("MUSIC_DIR", filepath.Join(dataBase, "musicFiles")),
		LyricDir:      getEnv("LYRIC_DIR", filepath.Join(dataBase, "lyrics")),
		MaxUploadSize: getEnvInt64("MAX_UPLOAD_SIZE", 50<<20), // 50 MiB
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       getEnv("LOG_PATH", ""),
	}
}
