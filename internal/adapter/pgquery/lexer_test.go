package pgquery

import (
	"testing"

	"github.com/guillermoBallester/querytally/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog map[string]domain.TableKind

func (f fakeCatalog) Kind(_, name string) (domain.TableKind, bool) {
	k, ok := f[name]
	return k, ok
}

func base(name string) domain.TableRef {
	return domain.TableRef{Kind: domain.TableKindBase, Name: name}
}

func TestLexer_Commands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sql  string
		want domain.Command
	}{
		{"SELECT * FROM special_table", domain.CommandSelect},
		{"SELECT * INTO copy_table FROM special_table", domain.CommandCreateTable},
		{"INSERT INTO special_table (id) VALUES (1)", domain.CommandInsert},
		{"INSERT INTO special_table SELECT * FROM other_table", domain.CommandInsertSelect},
		{"UPDATE special_table SET n = 1", domain.CommandUpdate},
		{"UPDATE special_table s SET n = o.n FROM other_table o WHERE o.id = s.id", domain.CommandUpdateMulti},
		{"DELETE FROM special_table WHERE id = 1", domain.CommandDelete},
		{"DELETE FROM special_table s USING other_table o WHERE o.id = s.id", domain.CommandDeleteMulti},
		{"TRUNCATE special_table", domain.CommandTruncate},
		{"PREPARE p AS SELECT * FROM special_table", domain.CommandPrepare},
		{"EXECUTE p", domain.CommandExecute},
		{"DEALLOCATE p", domain.CommandDeallocate},
		{"COPY special_table FROM STDIN", domain.CommandLoad},
		{"COPY special_table TO STDOUT", domain.CommandCopyOut},
		{"IMPORT FOREIGN SCHEMA remote FROM SERVER srv INTO public", domain.CommandImport},
		{"CREATE TABLE t (id int)", domain.CommandCreateTable},
		{"CREATE TABLE t AS SELECT 1", domain.CommandCreateTable},
		{"ALTER TABLE t ADD COLUMN n int", domain.CommandAlterTable},
		{"DROP TABLE t", domain.CommandDropTable},
		{"CREATE INDEX idx ON t (id)", domain.CommandCreateIndex},
		{"DROP INDEX idx", domain.CommandDropIndex},
		{"CREATE VIEW v AS SELECT 1", domain.CommandCreateView},
		{"DROP VIEW v", domain.CommandDropView},
		{"CREATE DATABASE d", domain.CommandCreateDB},
		{"DROP DATABASE d", domain.CommandDropDB},
		{"CREATE FUNCTION f() RETURNS int LANGUAGE sql AS 'SELECT 1'", domain.CommandCreateFunction},
		{"CREATE PROCEDURE p() LANGUAGE sql AS 'SELECT 1'", domain.CommandCreateProcedure},
		{"CALL p()", domain.CommandCall},
		{"LOCK TABLE special_table", domain.CommandLock},
		{"GRANT SELECT ON special_table TO bob", domain.CommandGrant},
		{"REVOKE SELECT ON special_table FROM bob", domain.CommandRevoke},
		{"BEGIN", domain.CommandBegin},
		{"START TRANSACTION", domain.CommandBegin},
		{"COMMIT", domain.CommandCommit},
		{"ROLLBACK", domain.CommandRollback},
		{"SET search_path = public", domain.CommandSet},
		{"SHOW search_path", domain.CommandShow},
		{"EXPLAIN SELECT 1", domain.CommandExplain},
		{"VACUUM special_table", domain.CommandVacuum},
		{"ANALYZE special_table", domain.CommandAnalyze},
		{"LISTEN channel", domain.CommandOther},
		{"", domain.CommandOther},
	}

	lexer := NewLexer(nil)
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			t.Parallel()
			cmd, stmt := lexer.Lex(tt.sql)
			assert.Equal(t, tt.want, cmd)
			require.NotNil(t, stmt)
			assert.NotNil(t, stmt.Lex, "parseable SQL must carry lexical information")
		})
	}
}

func TestLexer_ParseErrorHasNoLex(t *testing.T) {
	t.Parallel()
	cmd, stmt := NewLexer(nil).Lex("SELEC * FROM special_table")

	assert.Equal(t, domain.CommandOther, cmd)
	require.NotNil(t, stmt)
	assert.Nil(t, stmt.Lex)
	assert.Equal(t, "SELEC * FROM special_table", stmt.SQL)
}

func TestLexer_Tables(t *testing.T) {
	t.Parallel()

	catalog := fakeCatalog{
		"special_view": domain.TableKindView,
		"remote_table": domain.TableKindOther,
	}

	tests := []struct {
		name string
		sql  string
		want []domain.TableRef
	}{
		{
			name: "no tables",
			sql:  "SELECT 1",
			want: nil,
		},
		{
			name: "single table",
			sql:  "SELECT * FROM special_table",
			want: []domain.TableRef{base("special_table")},
		},
		{
			name: "schema qualified",
			sql:  "SELECT * FROM public.special_table",
			want: []domain.TableRef{{Kind: domain.TableKindBase, Schema: "public", Name: "special_table"}},
		},
		{
			name: "join keeps order",
			sql:  "SELECT s.id FROM special_table s JOIN other_table o ON o.id = s.id",
			want: []domain.TableRef{base("special_table"), base("other_table")},
		},
		{
			name: "subquery",
			sql:  "SELECT * FROM (SELECT id FROM special_table) AS sub",
			want: []domain.TableRef{base("special_table")},
		},
		{
			name: "cte shadows table",
			sql:  "WITH special_table AS (SELECT 1 AS id) SELECT * FROM special_table",
			want: []domain.TableRef{{Kind: domain.TableKindDerived, Name: "special_table"}},
		},
		{
			name: "qualified name is not a cte",
			sql:  "WITH special_table AS (SELECT 1 AS id) SELECT * FROM public.special_table",
			want: []domain.TableRef{{Kind: domain.TableKindBase, Schema: "public", Name: "special_table"}},
		},
		{
			name: "temporary create",
			sql:  "CREATE TEMP TABLE special_table (id int)",
			want: []domain.TableRef{{Kind: domain.TableKindTemporary, Name: "special_table"}},
		},
		{
			name: "pg_temp schema",
			sql:  "SELECT * FROM pg_temp.special_table",
			want: []domain.TableRef{{Kind: domain.TableKindTemporary, Schema: "pg_temp", Name: "special_table"}},
		},
		{
			name: "catalog view",
			sql:  "SELECT * FROM special_view",
			want: []domain.TableRef{{Kind: domain.TableKindView, Name: "special_view"}},
		},
		{
			name: "catalog other",
			sql:  "SELECT * FROM remote_table",
			want: []domain.TableRef{{Kind: domain.TableKindOther, Name: "remote_table"}},
		},
		{
			name: "insert select",
			sql:  "INSERT INTO special_table SELECT * FROM other_table",
			want: []domain.TableRef{base("special_table"), base("other_table")},
		},
		{
			name: "delete using",
			sql:  "DELETE FROM special_table s USING other_table o WHERE o.id = s.id",
			want: []domain.TableRef{base("special_table"), base("other_table")},
		},
		{
			name: "self join repeats reference",
			sql:  "SELECT 1 FROM special_table a, special_table b",
			want: []domain.TableRef{base("special_table"), base("special_table")},
		},
		{
			name: "multiple statements",
			sql:  "SELECT * FROM a; SELECT * FROM b",
			want: []domain.TableRef{base("a"), base("b")},
		},
	}

	lexer := NewLexer(catalog)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, stmt := lexer.Lex(tt.sql)
			require.NotNil(t, stmt.Lex)
			assert.Equal(t, tt.want, stmt.Lex.Tables)
		})
	}
}

func TestLexer_DataModifyingCTE(t *testing.T) {
	t.Parallel()
	cmd, stmt := NewLexer(nil).Lex("WITH gone AS (DELETE FROM special_table RETURNING *) SELECT * FROM gone")

	assert.Equal(t, domain.CommandSelect, cmd)
	require.NotNil(t, stmt.Lex)
	assert.ElementsMatch(t, []domain.TableRef{
		{Kind: domain.TableKindDerived, Name: "gone"},
		base("special_table"),
	}, stmt.Lex.Tables)
}

func TestCommandOf_Nil(t *testing.T) {
	t.Parallel()
	assert.Equal(t, domain.CommandOther, CommandOf(nil))
}
