package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// rowsToMaps converts pgx.Rows into a slice of maps keyed by column name.
// At most maxRows rows are read when maxRows > 0; the rest are discarded.
func rowsToMaps(rows pgx.Rows, maxRows int) ([]map[string]any, error) {
	fields := rows.FieldDescriptions()
	var result []map[string]any
	for rows.Next() {
		if maxRows > 0 && len(result) >= maxRows {
			break
		}
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row values: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[fd.Name] = vals[i]
		}
		result = append(result, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}
