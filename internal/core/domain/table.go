package domain

import "iter"

// SpecialTable is the designated table tracked by the special-query counter.
const SpecialTable = "special_table"

// UnknownUser is reported when a statement carries no principal.
const UnknownUser = "unknown"

// TableKind classifies a table reference.
type TableKind int

const (
	TableKindOther TableKind = iota
	TableKindBase
	TableKindView
	TableKindDerived   // CTE or subquery alias
	TableKindTemporary // session-local temporary table
)

func (k TableKind) String() string {
	switch k {
	case TableKindBase:
		return "table"
	case TableKindView:
		return "view"
	case TableKindDerived:
		return "derived"
	case TableKindTemporary:
		return "temporary"
	default:
		return "other"
	}
}

// TableRef is one table or view a statement touches.
type TableRef struct {
	Kind   TableKind `json:"kind"`
	Schema string    `json:"schema,omitempty"`
	Name   string    `json:"name"`
}

// Lex is the lexical information the host attaches to a statement.
type Lex struct {
	Tables []TableRef
}

// All yields the table references in statement order. The sequence is
// read-only and can be ranged over any number of times.
func (l *Lex) All() iter.Seq[TableRef] {
	return func(yield func(TableRef) bool) {
		if l == nil {
			return
		}
		for _, t := range l.Tables {
			if !yield(t) {
				return
			}
		}
	}
}

// Empty reports whether the statement references no tables.
func (l *Lex) Empty() bool {
	return l == nil || len(l.Tables) == 0
}

// Principal is the authenticated identity issuing a statement.
type Principal struct {
	User string
}

// Statement is the per-statement context handed to the hook. It is only
// valid for the duration of a single Notify call.
type Statement struct {
	SQL       string
	Lex       *Lex // nil when the host has no lexical information
	Principal *Principal
}

// UserOrUnknown returns the principal's user name, or UnknownUser.
func (s *Statement) UserOrUnknown() string {
	if s == nil || s.Principal == nil || s.Principal.User == "" {
		return UnknownUser
	}
	return s.Principal.User
}
