package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/getantonio/tokenhub/internal/storage"
	"github.com/getantonio/tokenhub/internal/storage/migrations"
	"github.com/getantonio/tokenhub/internal/storage/postgres"
	"github.com/getantonio/tokenhub/internal/storage/storagetest"
)

// setupTestDB starts a PostgreSQL container and applies the embedded
// migrations. The container is terminated when the test ends.
func setupTestDB(t *testing.T) *postgres.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")
	t.Cleanup(pool.Close)

	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool))
	return pool
}

func TestIssuanceStore(t *testing.T) {
	pool := setupTestDB(t)
	storagetest.Run(t, func(t *testing.T) storage.IssuanceStore {
		_, err := pool.Exec(context.Background(), "TRUNCATE issuances")
		require.NoError(t, err)
		return postgres.NewIssuanceStore(pool)
	})
}
