package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/guillermoBallester/querytally/internal/adapter/postgres"
	"github.com/guillermoBallester/querytally/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Kinds(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		schema, name string
		want         domain.TableKind
		wantOK       bool
	}{
		{"", "special_table", domain.TableKindBase, true},
		{"public", "special_table", domain.TableKindBase, true},
		{"archive", "special_table", domain.TableKindBase, true},
		{"", "special_view", domain.TableKindView, true},
		{"", "missing", domain.TableKindOther, false},
		{"pg_catalog", "pg_class", domain.TableKindOther, false},
	}
	for _, tt := range tests {
		kind, ok := db.catalog.Kind(tt.schema, tt.name)
		assert.Equal(t, tt.wantOK, ok, "%s.%s", tt.schema, tt.name)
		if tt.wantOK {
			assert.Equal(t, tt.want, kind, "%s.%s", tt.schema, tt.name)
		}
	}
	assert.Equal(t, 4, db.catalog.Len())
}

func TestCatalog_SchemaFilter(t *testing.T) {
	db := setupTestDB(t)
	catalog := postgres.NewCatalog(db.raw, []string{"archive"}, discardLogger())
	require.NoError(t, catalog.Refresh(context.Background()))

	assert.Equal(t, 1, catalog.Len())
	_, ok := catalog.Kind("public", "special_table")
	assert.False(t, ok)
}

func TestCatalog_RunStopsOnCancel(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- db.catalog.Run(ctx, 10*time.Millisecond) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("catalog refresh loop did not stop")
	}
}

func TestTracedPool_CountsStatements(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	executor := postgres.NewExecutor(db.pool, false, 100, 10*time.Second)

	before := db.hook.Counters().Snapshot()

	statements := []string{
		"SELECT * FROM special_table",
		"SELECT * FROM special_view",
		"SELECT * FROM other_table",
		"SELECT 1",
		"UPDATE other_table SET note = 'x' WHERE id = 2",
		"WITH special_table AS (SELECT 1 AS id) SELECT * FROM special_table",
	}
	for _, sql := range statements {
		_, err := executor.Execute(ctx, sql)
		require.NoError(t, err, sql)
	}

	after := db.hook.Counters().Snapshot()
	// SELECT 1 references no table. BEGIN, SET and COMMIT are not audited.
	assert.Equal(t, uint64(5), after.TotalQueries-before.TotalQueries)
	// The base table and the view match; the CTE does not.
	assert.Equal(t, uint64(2), after.TotalSpecialQueries-before.TotalSpecialQueries)
	assert.GreaterOrEqual(t, after.TotalTimeUS, before.TotalTimeUS)
}

func TestTracedPool_DisabledHookLeavesCountersAlone(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	db.hook.SetEnabled(false)

	_, err := db.pool.Exec(ctx, "SELECT * FROM special_table")
	require.NoError(t, err)

	assert.Equal(t, domain.CounterSnapshot{}, db.hook.Counters().Snapshot())
}
