//go:build integration

package sequence_test

import (
	"context"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/syssam/bulkwrite/dialect"
	"github.com/syssam/bulkwrite/dialect/sql"
	"github.com/syssam/bulkwrite/internal/fixture"
	"github.com/syssam/bulkwrite/sequence"
)

func openPostgres(t *testing.T) *sql.Driver {
	t.Helper()
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("bulkwrite"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	drv, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })
	return drv
}

func TestReserve_Postgres(t *testing.T) {
	ctx := context.Background()
	drv := openPostgres(t)
	require.Equal(t, dialect.Postgres, drv.Dialect())
	for _, stmt := range []string{
		"CREATE SEQUENCE seq_a START 100",
		"CREATE SEQUENCE seq_b START 1 INCREMENT 10",
		"CREATE SEQUENCE order_seq",
	} {
		require.NoError(t, drv.Exec(ctx, stmt, []any{}, nil))
	}
	a := sequence.New(drv, dialect.For(drv.Dialect()))

	got, err := a.Reserve(ctx, map[string]int{"seq_b": 5, "seq_a": 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 101, 102}, got["seq_a"])
	assert.Equal(t, []int64{1, 11, 21, 31, 41}, got["seq_b"])

	// Rows past a sequence's own count do not consume values.
	got, err = a.Reserve(ctx, map[string]int{"seq_a": 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{103}, got["seq_a"])

	orders := []any{&fixture.Order{}, &fixture.Order{}}
	require.NoError(t, a.Assign(ctx, fixture.Registry(), sequence.Entries{Records: orders}))
	assert.Equal(t, int64(1), orders[0].(*fixture.Order).ID)
	assert.Equal(t, int64(2), orders[1].(*fixture.Order).ID)
}
