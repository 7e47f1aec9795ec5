package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage/migrations"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/config"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/database"
)

// setupTestDB starts a PostgreSQL container, applies migrations and returns a pool.
// The container is terminated through t.Cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("analytics"),
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
	require.NoError(t, err)

	db, err := database.New(ctx, &config.Config{Database: config.DatabaseConfig{
		URL:             dsn,
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	}})
	require.NoError(t, err, "failed to create pool")
	t.Cleanup(db.Close)

	require.NoError(t, migrations.RunPostgres(ctx, db.Pool))
	// 두 번 실행해도 안전해야 함
	require.NoError(t, migrations.RunPostgres(ctx, db.Pool))

	return db.Pool
}
