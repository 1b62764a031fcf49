package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLAdapter_Close(t *testing.T) {
	t.Run("close with nil DB", func(t *testing.T) {
		b := &BaseSQLAdapter{}
		assert.NoError(t, b.Close())
	})

	t.Run("close with open DB", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		mock.ExpectClose()

		b := &BaseSQLAdapter{DB: db}
		assert.NoError(t, b.Close())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	t.Run("exec without connection", func(t *testing.T) {
		b := &BaseSQLAdapter{}
		err := b.Exec(context.Background(), "CREATE SCHEMA s")
		assert.ErrorContains(t, err, "not established")
	})

	t.Run("exec statement", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "staging"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		b := &BaseSQLAdapter{DB: db}
		require.NoError(t, b.Exec(context.Background(), `CREATE SCHEMA IF NOT EXISTS "staging"`))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec propagates driver errors", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec("ATTACH").WillReturnError(assert.AnError)

		b := &BaseSQLAdapter{DB: db}
		err = b.Exec(context.Background(), "ATTACH 'x.db' AS x")
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestBaseSQLAdapter_Ping(t *testing.T) {
	t.Run("ping without connection", func(t *testing.T) {
		b := &BaseSQLAdapter{}
		assert.Error(t, b.Ping(context.Background()))
	})

	t.Run("ping open connection", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectPing()

		b := &BaseSQLAdapter{DB: db}
		assert.NoError(t, b.Ping(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBaseSQLAdapter_IsConnected(t *testing.T) {
	b := &BaseSQLAdapter{}
	assert.False(t, b.IsConnected())

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	b.DB = db
	assert.True(t, b.IsConnected())
}
