package batch_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/bulkwrite"
	"github.com/syssam/bulkwrite/batch"
	"github.com/syssam/bulkwrite/dialect"
	"github.com/syssam/bulkwrite/dialect/sql"
)

func newMock(t *testing.T, name string) (*sql.Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return sql.OpenDB(name, db), mock
}

func TestExecutor_Exec(t *testing.T) {
	drv, mock := newMock(t, dialect.Postgres)
	plans := []batch.Data{
		{
			Query:    "INSERT INTO orders (id, total) VALUES (?, ?), (?, ?)",
			Bindings: [][]any{{1, 1.5, 2, 2.5}},
		},
		{
			Query:    "INSERT INTO orders (id, total) VALUES (?, ?)",
			Bindings: [][]any{{3, 3.5}, {4, 4.5}},
		},
	}
	mock.ExpectExec("INSERT INTO orders (id, total) VALUES ($1, $2), ($3, $4)").
		WithArgs(1, 1.5, 2, 2.5).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO orders (id, total) VALUES ($1, $2)").
		WithArgs(3, 3.5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO orders (id, total) VALUES ($1, $2)").
		WithArgs(4, 4.5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := batch.NewExecutor(drv).Exec(context.Background(), plans)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestExecutor_WithDialect(t *testing.T) {
	drv, mock := newMock(t, dialect.MySQL)
	mock.ExpectExec("DELETE FROM notes WHERE id = $1").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// A bare connection reports no dialect; the option selects the style.
	ex := batch.NewExecutor(drv.Conn, batch.WithDialect("pgx"))
	_, err := ex.Exec(context.Background(), []batch.Data{{Query: "DELETE FROM notes WHERE id = ?", Bindings: [][]any{{7}}}})
	require.NoError(t, err)
}

func TestExecutor_Error(t *testing.T) {
	drv, mock := newMock(t, dialect.Postgres)
	violation := &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
	mock.ExpectExec("INSERT INTO notes (id) VALUES ($1)").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notes (id) VALUES ($1)").
		WithArgs(1).
		WillReturnError(violation)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	n, err := batch.NewExecutor(drv, batch.WithLogger(logger)).Exec(context.Background(), []batch.Data{
		{Query: "INSERT INTO notes (id) VALUES (?)", Bindings: [][]any{{1}, {1}, {2}}},
	})
	require.Error(t, err)
	var pqErr *pq.Error
	require.True(t, errors.As(err, &pqErr))
	assert.Same(t, violation, pqErr, "executor errors are returned unmodified")
	assert.Equal(t, int64(1), n)
	assert.Contains(t, buf.String(), "constraint=unique")
	assert.Contains(t, buf.String(), "execution=1")
}

func TestExecutor_Nil(t *testing.T) {
	var ex *batch.Executor
	_, err := ex.Exec(context.Background(), nil)
	assert.True(t, bulkwrite.IsStateError(err))

	_, err = batch.NewExecutor(nil).Exec(context.Background(), []batch.Data{{Query: "SELECT 1", Bindings: [][]any{{}}}})
	assert.True(t, bulkwrite.IsStateError(err))
}

func TestExecutor_Empty(t *testing.T) {
	drv, _ := newMock(t, dialect.Postgres)
	n, err := batch.NewExecutor(drv).Exec(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
