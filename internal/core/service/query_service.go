package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/querytally/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type toolNameKey struct{}

// WithToolName returns a context carrying the MCP tool name for audit logging.
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey{}, name)
}

func toolNameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(toolNameKey{}).(string); ok {
		return v
	}
	return ""
}

// QueryService orchestrates SQL validation (domain) and execution (infrastructure).
// Counting happens below it, on the traced connection.
type QueryService struct {
	validator port.QueryValidator
	executor  port.QueryExecutor
	lexer     port.StatementLexer
	auditor   port.QueryAuditor
	user      string
	logger    *slog.Logger
	tracer    trace.Tracer
	inst      port.Instrumentation
}

// NewQueryService builds the service. user is the database role statements
// run as and is only written to audit entries.
func NewQueryService(validator port.QueryValidator, executor port.QueryExecutor, lexer port.StatementLexer, auditor port.QueryAuditor, user string, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *QueryService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	if auditor == nil {
		auditor = port.NoopAuditor{}
	}
	return &QueryService{
		validator: validator,
		executor:  executor,
		lexer:     lexer,
		auditor:   auditor,
		user:      user,
		logger:    logger,
		tracer:    tracer,
		inst:      inst,
	}
}

// Execute validates the SQL statement and, if allowed, delegates to the executor.
func (s *QueryService) Execute(ctx context.Context, sql string) ([]map[string]any, error) {
	ctx, span := s.tracer.Start(ctx, "QueryService.Execute",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation.name", "query"),
			attribute.String("db.statement", sql),
		),
	)
	defer span.End()

	if err := s.validator.Validate(sql); err != nil {
		s.logger.WarnContext(ctx, "query validation rejected",
			slog.String("db.operation.name", "query"),
			slog.String("db.statement", sql),
			slog.String("error.type", "validation_error"),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementQueryErrors(ctx)
		return nil, fmt.Errorf("validation: %w", err)
	}

	cmd, stmt := s.lexer.Lex(sql)
	span.SetAttributes(attribute.String("db.operation.command", cmd.String()))

	start := time.Now()
	results, err := s.executor.Execute(ctx, sql)
	durationMS := time.Since(start).Milliseconds()

	entry := port.AuditEntry{
		Tool:         toolNameFromCtx(ctx),
		SQL:          sql,
		User:         s.user,
		Command:      cmd,
		RowsReturned: len(results),
		DurationMS:   durationMS,
		Err:          err,
	}
	if stmt != nil && stmt.Lex != nil {
		entry.Tables = stmt.Lex.Tables
	}
	s.auditor.Record(ctx, entry)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return results, err
	}

	span.SetAttributes(attribute.Int("db.response.rows", len(results)))
	return results, nil
}
