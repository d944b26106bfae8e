package postgres_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/guillermoBallester/querytally/internal/adapter/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_Explain(t *testing.T) {
	db := setupTestDB(t)
	executor := postgres.NewExecutor(db.pool, true, 100, 10*time.Second)

	results, err := executor.Execute(context.Background(), "EXPLAIN SELECT * FROM special_table")
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestExecute_Select_RowLimit(t *testing.T) {
	db := setupTestDB(t)
	executor := postgres.NewExecutor(db.pool, true, 3, 10*time.Second)

	results, err := executor.Execute(context.Background(), "SELECT id, name FROM special_table")
	require.NoError(t, err)
	assert.Len(t, results, 3, "should be limited to maxRows=3")
}

func TestExecute_ReadOnlyRejectsWrites(t *testing.T) {
	db := setupTestDB(t)
	executor := postgres.NewExecutor(db.pool, true, 100, 10*time.Second)

	_, err := executor.Execute(context.Background(), "DELETE FROM special_table")
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "read-only")
}

func TestExecute_ReadWrite(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	executor := postgres.NewExecutor(db.pool, false, 100, 10*time.Second)

	results, err := executor.Execute(ctx, "DELETE FROM other_table WHERE id = 1 RETURNING id")
	require.NoError(t, err)
	require.Len(t, results, 1)

	var n int
	require.NoError(t, db.raw.QueryRow(ctx, "SELECT count(*) FROM other_table").Scan(&n))
	assert.Equal(t, 4, n)
}

func TestExecute_StatementTimeout(t *testing.T) {
	db := setupTestDB(t)

	// pg_sleep(30) should be cancelled by statement_timeout.
	executor := postgres.NewExecutor(db.pool, true, 100, 1*time.Second)

	_, err := executor.Execute(context.Background(), "SELECT pg_sleep(30)")
	require.Error(t, err)

	// PostgreSQL cancels with SQLSTATE 57014 (query_canceled), or the Go
	// context expires first ("context deadline exceeded" / "timeout").
	errMsg := strings.ToLower(err.Error())
	assert.True(t,
		strings.Contains(errMsg, "statement timeout") ||
			strings.Contains(errMsg, "cancel") ||
			strings.Contains(errMsg, "57014") ||
			strings.Contains(errMsg, "deadline exceeded") ||
			strings.Contains(errMsg, "timeout"),
		"expected timeout-related error, got: %s", err,
	)
}
