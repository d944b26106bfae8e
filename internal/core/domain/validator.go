package domain

import (
	"errors"
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrNotAllowed     = errors.New("only read-only statements are allowed")
	ErrMultiStatement = errors.New("multiple statements are not allowed")
	ErrParseFailed    = errors.New("failed to parse SQL")
)

// PgQueryValidator validates SQL statements using PostgreSQL's actual parser.
// In read-only mode only SELECT, EXPLAIN and SHOW are permitted.
type PgQueryValidator struct {
	readOnly bool
}

func NewPgQueryValidator(readOnly bool) *PgQueryValidator {
	return &PgQueryValidator{readOnly: readOnly}
}

// Validate parses the SQL and rejects empty input, multiple statements and,
// in read-only mode, anything that can write.
func (v *PgQueryValidator) Validate(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return ErrEmptyQuery
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	if len(tree.Stmts) == 0 {
		return ErrEmptyQuery
	}

	if len(tree.Stmts) > 1 {
		return ErrMultiStatement
	}

	stmt := tree.Stmts[0].Stmt
	if stmt == nil {
		return ErrEmptyQuery
	}

	if !v.readOnly {
		return nil
	}

	switch n := stmt.Node.(type) {
	case *pg_query.Node_SelectStmt:
		if n.SelectStmt.IntoClause != nil {
			return ErrNotAllowed
		}
		return nil
	case *pg_query.Node_ExplainStmt, *pg_query.Node_VariableShowStmt:
		return nil
	default:
		return ErrNotAllowed
	}
}
