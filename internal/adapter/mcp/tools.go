package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/querytally/internal/core/domain"
	"github.com/guillermoBallester/querytally/internal/core/service"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "querytally"

// Tool names
const (
	toolQuery      = "query"
	toolShowStatus = "show_status"
	toolSetEnabled = "set_enabled"
)

// Tool descriptions
const (
	descQuery = "Execute a SQL statement against the audited database and return results as a JSON array of objects. " +
		"Every statement runs on a traced connection, so it is classified and counted by the audit hook " +
		"exactly like any other client statement. A server-side row limit and statement timeout are enforced. " +
		"In read-only mode only SELECT, EXPLAIN and SHOW are accepted."

	descQueryParam = "SQL statement to execute (a single statement)"

	descQueryExplain = "Run EXPLAIN on the statement instead of executing it. Defaults to false."

	descQueryAnalyze = "With explain, use EXPLAIN ANALYZE (the statement WILL be executed). Defaults to false."

	descShowStatus = "Show the audit status variables: total audited statements, statements touching special_table, " +
		"and cumulative scan time in microseconds, plus whether auditing is enabled and which commands are audited."

	descSetEnabled = "Turn statement auditing on or off. While off, counters are frozen and no statement is inspected."

	descSetEnabledParam = "true to enable auditing, false to disable it"
)

func RegisterTools(s *server.MCPServer, query *service.QueryService, status *service.StatusService, logger *slog.Logger) {
	if query != nil {
		s.AddTool(
			mcp.NewTool(toolQuery,
				mcp.WithDescription(descQuery),
				mcp.WithString("sql",
					mcp.Required(),
					mcp.Description(descQueryParam),
				),
				mcp.WithBoolean("explain",
					mcp.Description(descQueryExplain),
				),
				mcp.WithBoolean("analyze",
					mcp.Description(descQueryAnalyze),
				),
			),
			queryHandler(query, logger),
		)
	}

	s.AddTool(
		mcp.NewTool(toolShowStatus,
			mcp.WithDescription(descShowStatus),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		showStatusHandler(status),
	)

	s.AddTool(
		mcp.NewTool(toolSetEnabled,
			mcp.WithDescription(descSetEnabled),
			mcp.WithBoolean("enabled",
				mcp.Required(),
				mcp.Description(descSetEnabledParam),
			),
		),
		setEnabledHandler(status),
	)
}

func queryHandler(query *service.QueryService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, ok := request.GetArguments()["sql"].(string)
		if !ok || sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		explain, _ := request.GetArguments()["explain"].(bool)
		analyze, _ := request.GetArguments()["analyze"].(bool)
		switch {
		case explain && analyze:
			sql = "EXPLAIN ANALYZE " + sql
		case explain:
			sql = "EXPLAIN " + sql
		}

		ctx = service.WithToolName(ctx, toolQuery)
		results, err := query.Execute(ctx, sql)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "query")), nil
		}

		return jsonResult(results)
	}
}

func showStatusHandler(status *service.StatusService) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(status.Status())
	}
}

type setEnabledResult struct {
	Enabled bool `json:"enabled"`
	Changed bool `json:"changed"`
}

func setEnabledHandler(status *service.StatusService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		enabled, ok := request.GetArguments()["enabled"].(bool)
		if !ok {
			return mcp.NewToolResultError("enabled is required and must be a boolean"), nil
		}

		changed := status.SetEnabled(ctx, enabled)
		return jsonResult(setEnabledResult{Enabled: enabled, Changed: changed})
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// SQLSTATE codes surfaced to the caller verbatim.
const (
	sqlStateQueryCanceled   = "57014"
	sqlStateReadOnlyTx      = "25006"
	sqlStateUndefinedTable  = "42P01"
	sqlStateUndefinedColumn = "42703"
	sqlStateSyntaxError     = "42601"
)

// sanitizeError turns an execution error into a message safe to return to the
// client. Unexpected errors are logged and replaced by a generic message.
func sanitizeError(logger *slog.Logger, err error, op string) string {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery),
		errors.Is(err, domain.ErrNotAllowed),
		errors.Is(err, domain.ErrMultiStatement),
		errors.Is(err, domain.ErrParseFailed):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return op + " timed out"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateQueryCanceled:
			return op + " timed out"
		case sqlStateReadOnlyTx:
			return "statement is not allowed in read-only mode"
		case sqlStateUndefinedTable, sqlStateUndefinedColumn, sqlStateSyntaxError:
			return fmt.Sprintf("%s failed: %s", op, pgErr.Message)
		}
	}

	logger.Error(op+" failed", slog.String("error", err.Error()))
	return fmt.Sprintf("internal error during %s; check server logs", op)
}
