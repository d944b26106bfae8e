package port

import "context"

// QueryExecutor runs a single SQL statement and returns its rows.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string) ([]map[string]any, error)
}
