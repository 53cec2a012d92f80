package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/krasaetanont/vueMusic/model"
)

// MusicRepository defines the database operations for musics and their
// artist/genre links. Multi-statement workflows (upload, update, delete)
// run against an explicit transaction obtained from BeginTx so a failed step
// rolls the whole sequence back.
type MusicRepository interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
	RollbackTx(tx *sql.Tx)
	CommitTx(tx *sql.Tx) error

	CreateMusicWithTx(tx *sql.Tx, music *model.Music) (int64, error)
	LinkArtistWithTx(tx *sql.Tx, musicID, artistID int64) error
	LinkGenreWithTx(tx *sql.Tx, musicID, genreID int64) error
	ReplaceArtistLinksWithTx(tx *sql.Tx, musicID int64, artistIDs []int64) error
	ReplaceGenreLinksWithTx(tx *sql.Tx, musicID int64, genreIDs []int64) error
	UpdateMusicWithTx(tx *sql.Tx, music *model.Music) (bool, error)
	DeleteMusicWithTx(tx *sql.Tx, id int64) (bool, error)
	GetMusicRowWithTx(tx *sql.Tx, id int64) (*model.Music, error)
	SetLyricPathWithTx(tx *sql.Tx, id int64, lyricPath *string) (bool, error)

	GetMusicRow(ctx context.Context, id int64) (*model.Music, error)
	GetMusicDetail(ctx context.Context, id int64) (*model.Music, error)
	ListMusics(ctx context.Context) ([]*model.Music, error)
	ListMusicsByArtist(ctx context.Context, artistID int64) ([]*model.Music, error)
	ListMusicsByGenre(ctx context.Context, genreID int64) ([]*model.Music, error)
	ListMusicsByPlaylist(ctx context.Context, playlistID int64) ([]*model.Music, error)
	SetLyricPath(ctx context.Context, id int64, lyricPath *string) (bool, error)
}

type sqlMusicRepository struct {
	db *sql.DB
}

// NewMusicRepository creates a MusicRepository over the given pool.
func NewMusicRepository(db *sql.DB) MusicRepository {
	return &sqlMusicRepository{db: db}
}

func (r *sqlMusicRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

func (r *sqlMusicRepository) RollbackTx(tx *sql.Tx) {
	if tx != nil {
		tx.Rollback()
	}
}

func (r *sqlMusicRepository) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// CreateMusicWithTx inserts a music row. UploadedAt defaults to now when the
// caller leaves it zero.
func (r *sqlMusicRepository) CreateMusicWithTx(tx *sql.Tx, music *model.Music) (int64, error) {
	if music.UploadedAt.IsZero() {
		music.UploadedAt = time.Now()
	}
	res, err := tx.Exec(
		`INSERT INTO musics (title, file_path, lyric_path, uploaded_at) VALUES (?, ?, ?, ?)`,
		music.Title, music.FilePath, music.LyricPath, music.UploadedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert music %q: %w", music.Title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get music insert id: %w", err)
	}
	music.ID = id
	return id, nil
}

func (r *sqlMusicRepository) LinkArtistWithTx(tx *sql.Tx, musicID, artistID int64) error {
	_, err := tx.Exec(`INSERT INTO music_artists (music_id, artist_id) VALUES (?, ?)`, musicID, artistID)
	if err != nil {
		return fmt.Errorf("failed to link music %d to artist %d: %w", musicID, artistID, err)
	}
	return nil
}

func (r *sqlMusicRepository) LinkGenreWithTx(tx *sql.Tx, musicID, genreID int64) error {
	_, err := tx.Exec(`INSERT INTO music_genres (music_id, genre_id) VALUES (?, ?)`, musicID, genreID)
	if err != nil {
		return fmt.Errorf("failed to link music %d to genre %d: %w", musicID, genreID, err)
	}
	return nil
}

// ReplaceArtistLinksWithTx swaps the full artist link set of a music.
func (r *sqlMusicRepository) ReplaceArtistLinksWithTx(tx *sql.Tx, musicID int64, artistIDs []int64) error {
	if _, err := tx.Exec(`DELETE FROM music_artists WHERE music_id = ?`, musicID); err != nil {
		return fmt.Errorf("failed to clear artist links for music %d: %w", musicID, err)
	}
	for _, artistID := range artistIDs {
		if err := r.LinkArtistWithTx(tx, musicID, artistID); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceGenreLinksWithTx swaps the full genre link set of a music.
func (r *sqlMusicRepository) ReplaceGenreLinksWithTx(tx *sql.Tx, musicID int64, genreIDs []int64) error {
	if _, err := tx.Exec(`DELETE FROM music_genres WHERE music_id = ?`, musicID); err != nil {
		return fmt.Errorf("failed to clear genre links for music %d: %w", musicID, err)
	}
	for _, genreID := range genreIDs {
		if err := r.LinkGenreWithTx(tx, musicID, genreID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateMusicWithTx rewrites title, file_path and lyric_path of a music and
// reports whether the row exists.
func (r *sqlMusicRepository) UpdateMusicWithTx(tx *sql.Tx, music *model.Music) (bool, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM musics WHERE id = ?`, music.ID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up music %d: %w", music.ID, err)
	}
	_, err = tx.Exec(
		`UPDATE musics SET title = ?, file_path = ?, lyric_path = ? WHERE id = ?`,
		music.Title, music.FilePath, music.LyricPath, music.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update music %d: %w", music.ID, err)
	}
	return true, nil
}

// DeleteMusicWithTx removes a music row. Association rows cascade through the
// schema's foreign keys.
func (r *sqlMusicRepository) DeleteMusicWithTx(tx *sql.Tx, id int64) (bool, error) {
	res, err := tx.Exec(`DELETE FROM musics WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete music %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows for music delete: %w", err)
	}
	return affected > 0, nil
}

func (r *sqlMusicRepository) GetMusicRowWithTx(tx *sql.Tx, id int64) (*model.Music, error) {
	return scanMusicRow(tx.QueryRow(
		`SELECT id, title, file_path, lyric_path, uploaded_at FROM musics WHERE id = ?`, id))
}

func (r *sqlMusicRepository) SetLyricPathWithTx(tx *sql.Tx, id int64, lyricPath *string) (bool, error) {
	res, err := tx.Exec(`UPDATE musics SET lyric_path = ? WHERE id = ?`, lyricPath, id)
	if err != nil {
		return false, fmt.Errorf("failed to set lyric path for music %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows for lyric path update: %w", err)
	}
	return affected > 0, nil
}

func (r *sqlMusicRepository) GetMusicRow(ctx context.Context, id int64) (*model.Music, error) {
	return scanMusicRow(r.db.QueryRowContext(ctx,
		`SELECT id, title, file_path, lyric_path, uploaded_at FROM musics WHERE id = ?`, id))
}

// GetMusicDetail returns one music with its artists, genres and playlists.
func (r *sqlMusicRepository) GetMusicDetail(ctx context.Context, id int64) (*model.Music, error) {
	music, err := r.GetMusicRow(ctx, id)
	if err != nil || music == nil {
		return music, err
	}
	if err := r.attachRelations(ctx, []*model.Music{music}, true); err != nil {
		return nil, err
	}
	return music, nil
}

// ListMusics returns the whole library, most recently uploaded first, each
// music carrying its artists and genres.
func (r *sqlMusicRepository) ListMusics(ctx context.Context) ([]*model.Music, error) {
	musics, err := r.queryMusics(ctx,
		`SELECT id, title, file_path, lyric_path, uploaded_at FROM musics ORDER BY uploaded_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	if err := r.attachRelations(ctx, musics, false); err != nil {
		return nil, err
	}
	return musics, nil
}

func (r *sqlMusicRepository) ListMusicsByArtist(ctx context.Context, artistID int64) ([]*model.Music, error) {
	musics, err := r.queryMusics(ctx, `
		SELECT m.id, m.title, m.file_path, m.lyric_path, m.uploaded_at
		FROM musics m
		JOIN music_artists ma ON ma.music_id = m.id
		WHERE ma.artist_id = ?
		ORDER BY m.uploaded_at DESC, m.id DESC`, artistID)
	if err != nil {
		return nil, err
	}
	if err := r.attachRelations(ctx, musics, true); err != nil {
		return nil, err
	}
	return musics, nil
}

func (r *sqlMusicRepository) ListMusicsByGenre(ctx context.Context, genreID int64) ([]*model.Music, error) {
	musics, err := r.queryMusics(ctx, `
		SELECT m.id, m.title, m.file_path, m.lyric_path, m.uploaded_at
		FROM musics m
		JOIN music_genres mg ON mg.music_id = m.id
		WHERE mg.genre_id = ?
		ORDER BY m.uploaded_at DESC, m.id DESC`, genreID)
	if err != nil {
		return nil, err
	}
	if err := r.attachRelations(ctx, musics, true); err != nil {
		return nil, err
	}
	return musics, nil
}

func (r *sqlMusicRepository) ListMusicsByPlaylist(ctx context.Context, playlistID int64) ([]*model.Music, error) {
	musics, err := r.queryMusics(ctx, `
		SELECT m.id, m.title, m.file_path, m.lyric_path, m.uploaded_at
		FROM musics m
		JOIN music_playlists mp ON mp.music_id = m.id
		WHERE mp.playlist_id = ?
		ORDER BY m.uploaded_at DESC, m.id DESC`, playlistID)
	if err != nil {
		return nil, err
	}
	if err := r.attachRelations(ctx, musics, true); err != nil {
		return nil, err
	}
	return musics, nil
}

func (r *sqlMusicRepository) SetLyricPath(ctx context.Context, id int64, lyricPath *string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE musics SET lyric_path = ? WHERE id = ?`, lyricPath, id)
	if err != nil {
		return false, fmt.Errorf("failed to set lyric path for music %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows for lyric path update: %w", err)
	}
	if affected > 0 {
		return true, nil
	}
	// An unchanged value also reports zero affected rows on MySQL; a lookup
	// settles whether the row exists.
	music, err := r.GetMusicRow(ctx, id)
	if err != nil {
		return false, err
	}
	return music != nil, nil
}

func (r *sqlMusicRepository) queryMusics(ctx context.Context, query string, args ...interface{}) ([]*model.Music, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query musics: %w", err)
	}
	defer rows.Close()

	musics := make([]*model.Music, 0)
	for rows.Next() {
		music := &model.Music{}
		if err := rows.Scan(&music.ID, &music.Title, &music.FilePath, &music.LyricPath, &music.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan music row: %w", err)
		}
		musics = append(musics, music)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating music rows: %w", err)
	}
	return musics, nil
}

// attachRelations batch-loads the artist, genre and (optionally) playlist
// sets for the given musics.
func (r *sqlMusicRepository) attachRelations(ctx context.Context, musics []*model.Music, includePlaylists bool) error {
	if len(musics) == 0 {
		return nil
	}

	index := make(map[int64]*model.Music, len(musics))
	ids := make([]interface{}, 0, len(musics))
	for _, m := range musics {
		m.Artists = []model.Artist{}
		m.Genres = []model.Genre{}
		index[m.ID] = m
		ids = append(ids, m.ID)
	}
	ph := placeholders(len(ids))

	artistQuery := `
		SELECT ma.music_id, a.id, a.name
		FROM music_artists ma
		JOIN artists a ON a.id = ma.artist_id
		WHERE ma.music_id IN (` + ph + `)
		ORDER BY a.name`
	rows, err := r.db.QueryContext(ctx, artistQuery, ids...)
	if err != nil {
		return fmt.Errorf("failed to query music artists: %w", err)
	}
	for rows.Next() {
		var musicID int64
		var artist model.Artist
		if err := rows.Scan(&musicID, &artist.ID, &artist.Name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan music artist row: %w", err)
		}
		if m, ok := index[musicID]; ok {
			m.Artists = append(m.Artists, artist)
		}
	}
	if err := closeAfter(rows); err != nil {
		return fmt.Errorf("error iterating music artist rows: %w", err)
	}

	genreQuery := `
		SELECT mg.music_id, g.id, g.name
		FROM music_genres mg
		JOIN genres g ON g.id = mg.genre_id
		WHERE mg.music_id IN (` + ph + `)
		ORDER BY g.name`
	rows, err = r.db.QueryContext(ctx, genreQuery, ids...)
	if err != nil {
		return fmt.Errorf("failed to query music genres: %w", err)
	}
	for rows.Next() {
		var musicID int64
		var genre model.Genre
		if err := rows.Scan(&musicID, &genre.ID, &genre.Name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan music genre row: %w", err)
		}
		if m, ok := index[musicID]; ok {
			m.Genres = append(m.Genres, genre)
		}
	}
	if err := closeAfter(rows); err != nil {
		return fmt.Errorf("error iterating music genre rows: %w", err)
	}

	if !includePlaylists {
		return nil
	}

	playlistQuery := `
		SELECT mp.music_id, p.id, p.name
		FROM music_playlists mp
		JOIN playlists p ON p.id = mp.playlist_id
		WHERE mp.music_id IN (` + ph + `)
		ORDER BY p.name`
	rows, err = r.db.QueryContext(ctx, playlistQuery, ids...)
	if err != nil {
		return fmt.Errorf("failed to query music playlists: %w", err)
	}
	for rows.Next() {
		var musicID int64
		var playlist model.Playlist
		if err := rows.Scan(&musicID, &playlist.ID, &playlist.Name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan music playlist row: %w", err)
		}
		if m, ok := index[musicID]; ok {
			m.Playlists = append(m.Playlists, playlist)
		}
	}
	if err := closeAfter(rows); err != nil {
		return fmt.Errorf("error iterating music playlist rows: %w", err)
	}
	return nil
}

func scanMusicRow(row *sql.Row) (*model.Music, error) {
	music := &model.Music{}
	err := row.Scan(&music.ID, &music.Title, &music.FilePath, &music.LyricPath, &music.UploadedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan music row: %w", err)
	}
	return music, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func closeAfter(rows *sql.Rows) error {
	defer rows.Close()
	return rows.Err()
}
