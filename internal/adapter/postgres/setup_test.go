package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/guillermoBallester/querytally/internal/adapter/pgquery"
	"github.com/guillermoBallester/querytally/internal/adapter/postgres"
	"github.com/guillermoBallester/querytally/internal/core/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testSchema = `
	CREATE TABLE special_table (
		id   SERIAL PRIMARY KEY,
		name TEXT NOT NULL
	);
	CREATE TABLE other_table (
		id         SERIAL PRIMARY KEY,
		special_id INTEGER REFERENCES special_table(id),
		note       TEXT
	);
	CREATE VIEW special_view AS SELECT id, name FROM special_table;
	CREATE SCHEMA archive;
	CREATE TABLE archive.special_table (id INTEGER);

	INSERT INTO special_table (name) SELECT 'row ' || i FROM generate_series(1, 10) AS i;
	INSERT INTO other_table (special_id, note) SELECT i, 'note ' || i FROM generate_series(1, 5) AS i;
`

type testDB struct {
	pool    *pgxpool.Pool // traced
	raw     *pgxpool.Pool // untraced, for fixtures
	hook    *domain.Hook
	catalog *postgres.Catalog
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) *testDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	raw, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	_, err = raw.Exec(ctx, testSchema)
	require.NoError(t, err)

	logger := discardLogger()
	catalog := postgres.NewCatalog(raw, nil, logger)
	require.NoError(t, catalog.Refresh(ctx))

	hook := domain.NewHook(logger)
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DatabaseURL: connStr,
		MaxConns:    4,
		Tracer:      postgres.NewAuditTracer(hook, pgquery.NewLexer(catalog), nil),
	})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return &testDB{pool: pool, raw: raw, hook: hook, catalog: catalog}
}
