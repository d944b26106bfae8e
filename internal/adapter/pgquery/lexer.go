// Package pgquery derives statement lexical information (command kind and
// referenced tables) from SQL text using PostgreSQL's own parser.
package pgquery

import (
	"strings"

	"github.com/guillermoBallester/querytally/internal/core/domain"
	"github.com/guillermoBallester/querytally/internal/core/port"
	pg_query "github.com/pganalyze/pg_query_go/v6"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Lexer implements port.StatementLexer.
type Lexer struct {
	catalog port.RelationCatalog // optional
}

// NewLexer returns a lexer. catalog may be nil, in which case every named
// relation that is not a CTE or temporary table is treated as a base table.
func NewLexer(catalog port.RelationCatalog) *Lexer {
	return &Lexer{catalog: catalog}
}

// Lex parses sql. Unparseable input yields CommandOther and a statement with
// no lexical information.
func (l *Lexer) Lex(sql string) (domain.Command, *domain.Statement) {
	stmt := &domain.Statement{SQL: sql}

	tree, err := pg_query.Parse(sql)
	if err != nil {
		return domain.CommandOther, stmt
	}

	cmd := domain.CommandOther
	if len(tree.Stmts) > 0 {
		cmd = CommandOf(tree.Stmts[0].GetStmt())
	}

	w := &walker{ctes: make(map[string]struct{})}
	w.walk(tree.ProtoReflect())

	lex := &domain.Lex{}
	if len(w.ranges) > 0 {
		lex.Tables = make([]domain.TableRef, 0, len(w.ranges))
	}
	for _, rv := range w.ranges {
		lex.Tables = append(lex.Tables, domain.TableRef{
			Kind:   l.kindOf(rv, w.ctes),
			Schema: rv.Schemaname,
			Name:   rv.Relname,
		})
	}
	stmt.Lex = lex

	return cmd, stmt
}

func (l *Lexer) kindOf(rv *pg_query.RangeVar, ctes map[string]struct{}) domain.TableKind {
	if rv.Relpersistence == "t" || strings.EqualFold(rv.Schemaname, "pg_temp") {
		return domain.TableKindTemporary
	}
	if rv.Schemaname == "" {
		if _, ok := ctes[rv.Relname]; ok {
			return domain.TableKindDerived
		}
	}
	if l.catalog != nil {
		if kind, ok := l.catalog.Kind(rv.Schemaname, rv.Relname); ok {
			return kind
		}
	}
	return domain.TableKindBase
}

// walker collects RangeVar nodes in parse-tree order, plus every CTE name.
type walker struct {
	ranges []*pg_query.RangeVar
	ctes   map[string]struct{}
}

func (w *walker) walk(m protoreflect.Message) {
	switch n := m.Interface().(type) {
	case *pg_query.RangeVar:
		w.ranges = append(w.ranges, n)
	case *pg_query.CommonTableExpr:
		w.ctes[n.Ctename] = struct{}{}
	}

	fields := m.Descriptor().Fields()
	for i := range fields.Len() {
		fd := fields.Get(i)
		if fd.Kind() != protoreflect.MessageKind || fd.IsMap() || !m.Has(fd) {
			continue
		}
		if fd.IsList() {
			list := m.Get(fd).List()
			for j := range list.Len() {
				w.walk(list.Get(j).Message())
			}
			continue
		}
		w.walk(m.Get(fd).Message())
	}
}
