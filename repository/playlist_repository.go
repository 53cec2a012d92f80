package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/krasaetanont/vueMusic/model"
)

// PlaylistRepository defines the database operations for playlists and their
// music membership.
type PlaylistRepository interface {
	GetPlaylistByID(ctx context.Context, id int64) (*model.Playlist, error)
	GetPlaylistSummary(ctx context.Context, id int64) (*model.PlaylistSummary, error)
	ListPlaylists(ctx context.Context) ([]*model.PlaylistSummary, error)
	CreatePlaylist(ctx context.Context, name string) (*model.Playlist, error)
	UpdatePlaylist(ctx context.Context, id int64, name string) (*model.Playlist, error)
	DeletePlaylist(ctx context.Context, id int64) (bool, error)

	// AddMusic links a music to a playlist. Returns ErrPlaylistNotFound,
	// ErrMusicNotFound or ErrAlreadyInPlaylist so the caller can report each
	// condition distinctly.
	AddMusic(ctx context.Context, playlistID, musicID int64) error
	// RemoveMusic unlinks a music from a playlist and reports whether the
	// pair existed.
	RemoveMusic(ctx context.Context, playlistID, musicID int64) (bool, error)
}

type sqlPlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a PlaylistRepository over the given pool.
func NewPlaylistRepository(db *sql.DB) PlaylistRepository {
	return &sqlPlaylistRepository{db: db}
}

func (r *sqlPlaylistRepository) GetPlaylistByID(ctx context.Context, id int64) (*model.Playlist, error) {
	playlist := &model.Playlist{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM playlists WHERE id = ?`, id).
		Scan(&playlist.ID, &playlist.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan playlist %d: %w", id, err)
	}
	return playlist, nil
}

func (r *sqlPlaylistRepository) GetPlaylistSummary(ctx context.Context, id int64) (*model.PlaylistSummary, error) {
	query := `
		SELECT p.id, p.name, COUNT(mp.music_id)
		FROM playlists p
		LEFT JOIN music_playlists mp ON p.id = mp.playlist_id
		WHERE p.id = ?
		GROUP BY p.id, p.name`
	p := &model.PlaylistSummary{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.MusicCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan playlist summary %d: %w", id, err)
	}
	return p, nil
}

func (r *sqlPlaylistRepository) ListPlaylists(ctx context.Context) ([]*model.PlaylistSummary, error) {
	query := `
		SELECT p.id, p.name, COUNT(mp.music_id)
		FROM playlists p
		LEFT JOIN music_playlists mp ON p.id = mp.playlist_id
		GROUP BY p.id, p.name
		ORDER BY p.name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := make([]*model.PlaylistSummary, 0)
	for rows.Next() {
		p := &model.PlaylistSummary{}
		if err := rows.Scan(&p.ID, &p.Name, &p.MusicCount); err != nil {
			return nil, fmt.Errorf("failed to scan playlist row: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating playlist rows: %w", err)
	}
	return playlists, nil
}

func (r *sqlPlaylistRepository) CreatePlaylist(ctx context.Context, name string) (*model.Playlist, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO playlists (name) VALUES (?)`, name)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist insert id: %w", err)
	}
	return &model.Playlist{ID: id, Name: name}, nil
}

func (r *sqlPlaylistRepository) UpdatePlaylist(ctx context.Context, id int64, name string) (*model.Playlist, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE playlists SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows for playlist update: %w", err)
	}
	if affected == 0 {
		existing, err := r.GetPlaylistByID(ctx, id)
		if err != nil || existing == nil {
			return nil, err
		}
	}
	return &model.Playlist{ID: id, Name: name}, nil
}

func (r *sqlPlaylistRepository) DeletePlaylist(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete playlist %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows for playlist delete: %w", err)
	}
	return affected > 0, nil
}

func (r *sqlPlaylistRepository) AddMusic(ctx context.Context, playlistID, musicID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin playlist membership transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	if err := tx.QueryRow(`SELECT id FROM playlists WHERE id = ?`, playlistID).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return ErrPlaylistNotFound
		}
		return fmt.Errorf("failed to look up playlist %d: %w", playlistID, err)
	}
	if err := tx.QueryRow(`SELECT id FROM musics WHERE id = ?`, musicID).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return ErrMusicNotFound
		}
		return fmt.Errorf("failed to look up music %d: %w", musicID, err)
	}

	_, err = tx.Exec(`INSERT INTO music_playlists (music_id, playlist_id) VALUES (?, ?)`, musicID, playlistID)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrAlreadyInPlaylist
		}
		return fmt.Errorf("failed to link music %d to playlist %d: %w", musicID, playlistID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist membership: %w", err)
	}
	return nil
}

func (r *sqlPlaylistRepository) RemoveMusic(ctx context.Context, playlistID, musicID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM music_playlists WHERE playlist_id = ? AND music_id = ?`, playlistID, musicID)
	if err != nil {
		return false, fmt.Errorf("failed to unlink music %d from playlist %d: %w", musicID, playlistID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows for playlist unlink: %w", err)
	}
	return affected > 0, nil
}
