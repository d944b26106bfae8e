package pgquery

import (
	"github.com/guillermoBallester/querytally/internal/core/domain"
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// CommandOf maps a parsed statement node to its command kind.
func CommandOf(node *pg_query.Node) domain.Command {
	if node == nil {
		return domain.CommandOther
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		if n.SelectStmt.IntoClause != nil {
			return domain.CommandCreateTable
		}
		return domain.CommandSelect
	case *pg_query.Node_InsertStmt:
		src := n.InsertStmt.GetSelectStmt().GetSelectStmt()
		if src != nil && len(src.ValuesLists) == 0 {
			return domain.CommandInsertSelect
		}
		return domain.CommandInsert
	case *pg_query.Node_UpdateStmt:
		if len(n.UpdateStmt.FromClause) > 0 {
			return domain.CommandUpdateMulti
		}
		return domain.CommandUpdate
	case *pg_query.Node_DeleteStmt:
		if len(n.DeleteStmt.UsingClause) > 0 {
			return domain.CommandDeleteMulti
		}
		return domain.CommandDelete
	case *pg_query.Node_TruncateStmt:
		return domain.CommandTruncate
	case *pg_query.Node_PrepareStmt:
		return domain.CommandPrepare
	case *pg_query.Node_ExecuteStmt:
		return domain.CommandExecute
	case *pg_query.Node_DeallocateStmt:
		return domain.CommandDeallocate
	case *pg_query.Node_CopyStmt:
		if n.CopyStmt.IsFrom {
			return domain.CommandLoad
		}
		return domain.CommandCopyOut
	case *pg_query.Node_ImportForeignSchemaStmt:
		return domain.CommandImport
	case *pg_query.Node_CreateStmt, *pg_query.Node_CreateTableAsStmt:
		return domain.CommandCreateTable
	case *pg_query.Node_AlterTableStmt:
		return domain.CommandAlterTable
	case *pg_query.Node_IndexStmt:
		return domain.CommandCreateIndex
	case *pg_query.Node_ViewStmt:
		return domain.CommandCreateView
	case *pg_query.Node_DropStmt:
		return dropCommand(n.DropStmt.RemoveType)
	case *pg_query.Node_CreatedbStmt:
		return domain.CommandCreateDB
	case *pg_query.Node_DropdbStmt:
		return domain.CommandDropDB
	case *pg_query.Node_CreateFunctionStmt:
		if n.CreateFunctionStmt.IsProcedure {
			return domain.CommandCreateProcedure
		}
		return domain.CommandCreateFunction
	case *pg_query.Node_CallStmt:
		return domain.CommandCall
	case *pg_query.Node_LockStmt:
		return domain.CommandLock
	case *pg_query.Node_GrantStmt:
		if n.GrantStmt.IsGrant {
			return domain.CommandGrant
		}
		return domain.CommandRevoke
	case *pg_query.Node_TransactionStmt:
		return transactionCommand(n.TransactionStmt.Kind)
	case *pg_query.Node_VariableSetStmt:
		return domain.CommandSet
	case *pg_query.Node_VariableShowStmt:
		return domain.CommandShow
	case *pg_query.Node_ExplainStmt:
		return domain.CommandExplain
	case *pg_query.Node_VacuumStmt:
		if n.VacuumStmt.IsVacuumcmd {
			return domain.CommandVacuum
		}
		return domain.CommandAnalyze
	default:
		return domain.CommandOther
	}
}

func dropCommand(t pg_query.ObjectType) domain.Command {
	switch t {
	case pg_query.ObjectType_OBJECT_TABLE:
		return domain.CommandDropTable
	case pg_query.ObjectType_OBJECT_VIEW, pg_query.ObjectType_OBJECT_MATVIEW:
		return domain.CommandDropView
	case pg_query.ObjectType_OBJECT_INDEX:
		return domain.CommandDropIndex
	default:
		return domain.CommandOther
	}
}

func transactionCommand(k pg_query.TransactionStmtKind) domain.Command {
	switch k {
	case pg_query.TransactionStmtKind_TRANS_STMT_BEGIN, pg_query.TransactionStmtKind_TRANS_STMT_START:
		return domain.CommandBegin
	case pg_query.TransactionStmtKind_TRANS_STMT_COMMIT:
		return domain.CommandCommit
	case pg_query.TransactionStmtKind_TRANS_STMT_ROLLBACK:
		return domain.CommandRollback
	default:
		return domain.CommandOther
	}
}
