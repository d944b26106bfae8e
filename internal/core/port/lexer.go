package port

import "github.com/guillermoBallester/querytally/internal/core/domain"

// StatementLexer produces the lexical information the host attaches to a
// statement before raising its audit event. A statement the lexer cannot
// understand comes back with a nil Lex.
type StatementLexer interface {
	Lex(sql string) (domain.Command, *domain.Statement)
}

// RelationCatalog resolves what kind of relation a table reference names.
// Implementations must not block: lookups run on the statement hot path.
type RelationCatalog interface {
	Kind(schema, name string) (domain.TableKind, bool)
}
