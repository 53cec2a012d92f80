package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Sentinel errors for the playlist membership workflow, so the HTTP layer can
// tell a missing entity from a duplicate pair.
var (
	ErrPlaylistNotFound  = errors.New("playlist not found")
	ErrMusicNotFound     = errors.New("music not found")
	ErrAlreadyInPlaylist = errors.New("music already in playlist")
)

// IsUniqueViolation reports whether err was caused by a uniqueness constraint.
// MySQL is detected through the driver's typed error; other drivers (the test
// database among them) fall back to message matching.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate entry")
}
