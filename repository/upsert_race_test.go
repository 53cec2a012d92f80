package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The lost-race branch of the name upserts cannot be reached through the
// sqlite test database, which serializes writers. These tests script the
// MySQL sequence instead: the initial lookup misses, the insert collides with
// a concurrently committed row, and the locking re-read resolves the winner's
// id. A plain re-read would consult the transaction's pre-insert snapshot and
// miss the row.

func duplicateEntryErr(key string) error {
	return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'Band X' for key '" + key + "'"}
}

func TestGetOrCreateArtistLostRaceReadsWinnerRow(t *testing.T) {
	mdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mdb.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM artists WHERE name = \?$`).
		WithArgs("Band X").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`INSERT INTO artists`).
		WithArgs("Band X").
		WillReturnError(duplicateEntryErr("artists.idx_artists_name"))
	mock.ExpectQuery(`SELECT id FROM artists WHERE name = \? FOR UPDATE`).
		WithArgs("Band X").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	tx, err := mdb.Begin()
	require.NoError(t, err)

	id, err := NewArtistRepository(mdb).GetOrCreateByNameWithTx(tx, "Band X")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateGenreLostRaceReadsWinnerRow(t *testing.T) {
	mdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mdb.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM genres WHERE name = \?$`).
		WithArgs("Rock").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`INSERT INTO genres`).
		WithArgs("Rock").
		WillReturnError(duplicateEntryErr("genres.idx_genres_name"))
	mock.ExpectQuery(`SELECT id FROM genres WHERE name = \? FOR UPDATE`).
		WithArgs("Rock").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	tx, err := mdb.Begin()
	require.NoError(t, err)

	id, err := NewGenreRepository(mdb).GetOrCreateByNameWithTx(tx, "Rock")
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateArtistReadFailureSurfacesInsertError(t *testing.T) {
	mdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mdb.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM artists WHERE name = \?$`).
		WithArgs("Band X").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`INSERT INTO artists`).
		WithArgs("Band X").
		WillReturnError(duplicateEntryErr("artists.idx_artists_name"))
	mock.ExpectQuery(`SELECT id FROM artists WHERE name = \? FOR UPDATE`).
		WithArgs("Band X").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	tx, err := mdb.Begin()
	require.NoError(t, err)

	_, err = NewArtistRepository(mdb).GetOrCreateByNameWithTx(tx, "Band X")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}
