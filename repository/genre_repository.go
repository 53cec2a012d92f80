package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/krasaetanont/vueMusic/model"
)

// GenreRepository defines the database operations for genres.
type GenreRepository interface {
	// GetOrCreateByNameWithTx resolves a genre name to its row id inside an
	// open transaction, inserting the row if the name is new.
	GetOrCreateByNameWithTx(tx *sql.Tx, name string) (int64, error)

	GetGenreByID(ctx context.Context, id int64) (*model.Genre, error)
	ListGenres(ctx context.Context) ([]*model.Genre, error)
	CreateGenre(ctx context.Context, name string) (*model.Genre, error)
	UpdateGenre(ctx context.Context, id int64, name string) (*model.Genre, error)
	DeleteGenre(ctx context.Context, id int64) (bool, error)
}

type sqlGenreRepository struct {
	db *sql.DB
}

// NewGenreRepository creates a GenreRepository over the given pool.
func NewGenreRepository(db *sql.DB) GenreRepository {
	return &sqlGenreRepository{db: db}
}

func (r *sqlGenreRepository) GetOrCreateByNameWithTx(tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM genres WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up genre %q: %w", name, err)
	}

	res, err := tx.Exec(`INSERT INTO genres (name) VALUES (?)`, name)
	if err != nil {
		if IsUniqueViolation(err) {
			// Locking read, same reason as the artist upsert: the plain
			// re-read would consult the pre-insert snapshot and miss the
			// concurrently committed row.
			if err2 := tx.QueryRow(`SELECT id FROM genres WHERE name = ? FOR UPDATE`, name).Scan(&id); err2 == nil {
				return id, nil
			}
		}
		return 0, fmt.Errorf("failed to insert genre %q: %w", name, err)
	}
	return res.LastInsertId()
}

func (r *sqlGenreRepository) GetGenreByID(ctx context.Context, id int64) (*model.Genre, error) {
	genre := &model.Genre{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM genres WHERE id = ?`, id).
		Scan(&genre.ID, &genre.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan genre %d: %w", id, err)
	}
	return genre, nil
}

func (r *sqlGenreRepository) ListGenres(ctx context.Context) ([]*model.Genre, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query genres: %w", err)
	}
	defer rows.Close()

	genres := make([]*model.Genre, 0)
	for rows.Next() {
		genre := &model.Genre{}
		if err := rows.Scan(&genre.ID, &genre.Name); err != nil {
			return nil, fmt.Errorf("failed to scan genre row: %w", err)
		}
		genres = append(genres, genre)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating genre rows: %w", err)
	}
	return genres, nil
}

func (r *sqlGenreRepository) CreateGenre(ctx context.Context, name string) (*model.Genre, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO genres (name) VALUES (?)`, name)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get genre insert id: %w", err)
	}
	return &model.Genre{ID: id, Name: name}, nil
}

func (r *sqlGenreRepository) UpdateGenre(ctx context.Context, id int64, name string) (*model.Genre, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE genres SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows for genre update: %w", err)
	}
	if affected == 0 {
		existing, err := r.GetGenreByID(ctx, id)
		if err != nil || existing == nil {
			return nil, err
		}
	}
	return &model.Genre{ID: id, Name: name}, nil
}

func (r *sqlGenreRepository) DeleteGenre(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM genres WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete genre %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows for genre delete: %w", err)
	}
	return affected > 0, nil
}
