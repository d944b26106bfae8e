package postgres

// queryRelations has one %s placeholder for the schema filter clause.
// public sorts first so an unqualified name resolves there before any other schema.
const queryRelations = `
	SELECT n.nspname, c.relname, c.relkind::text
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE c.relkind IN ('r', 'p', 'v', 'm', 'f')
		AND %s
	ORDER BY (n.nspname = 'public') DESC, n.nspname, c.relname`

// queryStatementTimeout has one %d placeholder for the timeout in milliseconds.
const queryStatementTimeout = `SET LOCAL statement_timeout = '%d'`
