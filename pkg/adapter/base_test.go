package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLAdapterClose(t *testing.T) {
	t.Run("nil DB", func(t *testing.T) {
		b := &BaseSQLAdapter{}
		assert.NoError(t, b.Close())
		assert.False(t, b.IsConnected())
	})

	t.Run("open DB", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		mock.ExpectClose()

		b := &BaseSQLAdapter{DB: db}
		assert.True(t, b.IsConnected())
		assert.NoError(t, b.Close())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBaseSQLAdapterQuery(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		b := &BaseSQLAdapter{}
		_, err := b.Query(context.Background(), "SELECT 1")
		assert.ErrorContains(t, err, "not established")
	})

	t.Run("reads rows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT id, name FROM teams").WillReturnRows(
			sqlmock.NewRows([]string{"id", "name"}).
				AddRow(1, "alpha").
				AddRow(2, "bravo"))

		b := &BaseSQLAdapter{DB: db}
		rows, err := b.Query(context.Background(), "SELECT id, name FROM teams")
		require.NoError(t, err)

		columns, records, err := rows.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name"}, columns)
		require.Len(t, records, 2)
		assert.Equal(t, "alpha", records[0][1])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT boom").WillReturnError(assert.AnError)

		b := &BaseSQLAdapter{DB: db}
		_, err = b.Query(context.Background(), "SELECT boom")
		assert.ErrorContains(t, err, "failed to execute query")
	})
}

func TestRowsReadAllNormalizesBytes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT email FROM reports").WillReturnRows(
		sqlmock.NewRows([]string{"email"}).AddRow([]byte("a@b.c")))

	b := &BaseSQLAdapter{DB: db}
	rows, err := b.Query(context.Background(), "SELECT email FROM reports")
	require.NoError(t, err)

	_, records, err := rows.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a@b.c", records[0][0])
}
