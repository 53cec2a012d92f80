package model

import "time"

// Music represents one uploaded song in the library.
// Artists, Genres and Playlists are populated by the query layer, not stored
// on the musics table itself.
type Music struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title      string    `json:"title" gorm:"size:255;not null"`
	FilePath   string    `json:"file_path" gorm:"size:512;not null"`
	LyricPath  *string   `json:"lyric_path" gorm:"size:512"`
	UploadedAt time.Time `json:"uploaded_at" gorm:"not null"`

	Artists   []Artist   `json:"artists" gorm:"-"`
	Genres    []Genre    `json:"genres" gorm:"-"`
	Playlists []Playlist `json:"playlists,omitempty" gorm:"-"`
}

func (Music) TableName() string { return "musics" }

// Artist is a named performer. Names are globally unique.
type Artist struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"size:255;not null;uniqueIndex"`
}

func (Artist) TableName() string { return "artists" }

// Genre is a named music category. Names are globally unique.
type Genre struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"size:255;not null;uniqueIndex"`
}

func (Genre) TableName() string { return "genres" }

// Playlist is a named collection of musics. Names are globally unique.
type Playlist struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"size:255;not null;uniqueIndex"`
}

func (Playlist) TableName() string { return "playlists" }

// PlaylistSummary is a playlist together with the number of musics it holds.
type PlaylistSummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	MusicCount int64  `json:"music_count"`
}

// MusicArtist links a music to an artist. The composite primary key prevents
// duplicate pairs; the foreign keys cascade on delete of either side.
type MusicArtist struct {
	MusicID  int64 `json:"music_id" gorm:"primaryKey;autoIncrement:false"`
	ArtistID int64 `json:"artist_id" gorm:"primaryKey;autoIncrement:false"`

	Music  Music  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Artist Artist `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (MusicArtist) TableName() string { return "music_artists" }

// MusicGenre links a music to a genre.
type MusicGenre struct {
	MusicID int64 `json:"music_id" gorm:"primaryKey;autoIncrement:false"`
	GenreID int64 `json:"genre_id" gorm:"primaryKey;autoIncrement:false"`

	Music Music `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Genre Genre `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (MusicGenre) TableName() string { return "music_genres" }

// MusicPlaylist links a music to a playlist.
type MusicPlaylist struct {
	MusicID    int64 `json:"music_id" gorm:"primaryKey;autoIncrement:false"`
	PlaylistID int64 `json:"playlist_id" gorm:"primaryKey;autoIncrement:false"`

	Music    Music    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Playlist Playlist `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (MusicPlaylist) TableName() string { return "music_playlists" }
