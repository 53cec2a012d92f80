// Package storage manages the two on-disk stores backing the library: one
// directory for uploaded audio files and one for generated lyric documents.
// Database rows reference files through public paths (/music/<name>,
// /lyrics/<id>.html); the mapping between public paths and disk locations
// lives here.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MusicMount is the URL prefix under which audio files are served.
	MusicMount = "/music"
	// LyricMount is the URL prefix under which lyric documents are served.
	LyricMount = "/lyrics"
)

// FileStore reads and writes the audio and lyric directories.
type FileStore struct {
	musicDir string
	lyricDir string
}

// NewFileStore creates a FileStore over the given directories.
func NewFileStore(musicDir, lyricDir string) *FileStore {
	return &FileStore{musicDir: musicDir, lyricDir: lyricDir}
}

// MusicDir returns the audio store directory.
func (s *FileStore) MusicDir() string { return s.musicDir }

// LyricDir returns the lyric store directory.
func (s *FileStore) LyricDir() string { return s.lyricDir }

// EnsureDirs creates both store directories if they do not exist yet.
func (s *FileStore) EnsureDirs() error {
	for _, dir := range []string{s.musicDir, s.lyricDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return nil
}

// GenerateAudioName produces a collision-resistant file name for an upload,
// preserving the extension of the original file name.
func GenerateAudioName(originalName string) string {
	ext := filepath.Ext(originalName)
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.NewString()[:8], ext)
}

// SaveAudio streams an uploaded audio file into the audio store under a newly
// generated name and returns that name.
func (s *FileStore) SaveAudio(src io.Reader, originalName string) (string, error) {
	name := GenerateAudioName(originalName)
	destPath := filepath.Join(s.musicDir, name)

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file %s: %w", destPath, err)
	}

	if _, err := io.Copy(dest, src); err != nil {
		dest.Close()
		os.Remove(destPath)
		return "", fmt.Errorf("failed to write audio file %s: %w", destPath, err)
	}

	if err := dest.Close(); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to close audio file %s: %w", destPath, err)
	}
	return name, nil
}

// RemoveAudio deletes a stored audio file. A file that is already gone is not
// an error.
func (s *FileStore) RemoveAudio(name string) error {
	return removeIfExists(filepath.Join(s.musicDir, filepath.Base(name)))
}

// WriteLyric writes (or overwrites) the lyric document for a music id and
// returns the stored file name.
func (s *FileStore) WriteLyric(musicID int64, content []byte) (string, error) {
	name := lyricFileName(musicID)
	destPath := filepath.Join(s.lyricDir, name)
	if err := os.WriteFile(destPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write lyric file %s: %w", destPath, err)
	}
	return name, nil
}

// RemoveLyric deletes the lyric document for a music id. A document that is
// already gone is not an error.
func (s *FileStore) RemoveLyric(musicID int64) error {
	return removeIfExists(filepath.Join(s.lyricDir, lyricFileName(musicID)))
}

// RemovePublic deletes the file behind a public path, resolving the store
// from the mount prefix. Used when cleaning up after a music row delete.
func (s *FileStore) RemovePublic(publicPath string) error {
	name := filepath.Base(publicPath)
	switch {
	case strings.HasPrefix(publicPath, MusicMount+"/"):
		return removeIfExists(filepath.Join(s.musicDir, name))
	case strings.HasPrefix(publicPath, LyricMount+"/"):
		return removeIfExists(filepath.Join(s.lyricDir, name))
	default:
		return fmt.Errorf("unrecognized public path %q", publicPath)
	}
}

// AudioPublicPath maps a stored audio file name to its public path.
func AudioPublicPath(name string) string {
	return MusicMount + "/" + name
}

// LyricPublicPath maps a music id to the public path of its lyric document.
func LyricPublicPath(musicID int64) string {
	return LyricMount + "/" + lyricFileName(musicID)
}

func lyricFileName(musicID int64) string {
	return fmt.Sprintf("%d.html", musicID)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
