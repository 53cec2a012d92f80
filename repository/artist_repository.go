package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/krasaetanont/vueMusic/model"
)

// ArtistRepository defines the database operations for artists.
type ArtistRepository interface {
	// GetOrCreateByNameWithTx resolves an artist name to its row id inside an
	// open transaction, inserting the row if the name is new. A concurrent
	// insert of the same name is settled by the unique index: the loser
	// re-reads the winner's row.
	GetOrCreateByNameWithTx(tx *sql.Tx, name string) (int64, error)

	GetArtistByID(ctx context.Context, id int64) (*model.Artist, error)
	ListArtists(ctx context.Context) ([]*model.Artist, error)
	CreateArtist(ctx context.Context, name string) (*model.Artist, error)
	UpdateArtist(ctx context.Context, id int64, name string) (*model.Artist, error)
	DeleteArtist(ctx context.Context, id int64) (bool, error)
}

type sqlArtistRepository struct {
	db *sql.DB
}

// NewArtistRepository creates an ArtistRepository over the given pool.
func NewArtistRepository(db *sql.DB) ArtistRepository {
	return &sqlArtistRepository{db: db}
}

func (r *sqlArtistRepository) GetOrCreateByNameWithTx(tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM artists WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up artist %q: %w", name, err)
	}

	res, err := tx.Exec(`INSERT INTO artists (name) VALUES (?)`, name)
	if err != nil {
		if IsUniqueViolation(err) {
			// Lost the race against a concurrent upload of the same name.
			// The re-read must lock: under REPEATABLE READ this transaction's
			// snapshot predates the winner's commit, and only a locking read
			// sees the winner's row.
			if err2 := tx.QueryRow(`SELECT id FROM artists WHERE name = ? FOR UPDATE`, name).Scan(&id); err2 == nil {
				return id, nil
			}
		}
		return 0, fmt.Errorf("failed to insert artist %q: %w", name, err)
	}
	return res.LastInsertId()
}

func (r *sqlArtistRepository) GetArtistByID(ctx context.Context, id int64) (*model.Artist, error) {
	artist := &model.Artist{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM artists WHERE id = ?`, id).
		Scan(&artist.ID, &artist.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan artist %d: %w", id, err)
	}
	return artist, nil
}

func (r *sqlArtistRepository) ListArtists(ctx context.Context) ([]*model.Artist, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM artists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	artists := make([]*model.Artist, 0)
	for rows.Next() {
		artist := &model.Artist{}
		if err := rows.Scan(&artist.ID, &artist.Name); err != nil {
			return nil, fmt.Errorf("failed to scan artist row: %w", err)
		}
		artists = append(artists, artist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artist rows: %w", err)
	}
	return artists, nil
}

func (r *sqlArtistRepository) CreateArtist(ctx context.Context, name string) (*model.Artist, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO artists (name) VALUES (?)`, name)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get artist insert id: %w", err)
	}
	return &model.Artist{ID: id, Name: name}, nil
}

func (r *sqlArtistRepository) UpdateArtist(ctx context.Context, id int64, name string) (*model.Artist, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE artists SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows for artist update: %w", err)
	}
	if affected == 0 {
		// Either the row is absent or the name did not change; a lookup
		// settles which.
		existing, err := r.GetArtistByID(ctx, id)
		if err != nil || existing == nil {
			return nil, err
		}
	}
	return &model.Artist{ID: id, Name: name}, nil
}

func (r *sqlArtistRepository) DeleteArtist(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM artists WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete artist %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows for artist delete: %w", err)
	}
	return affected > 0, nil
}
