package postgres

import (
	"context"
	"time"

	"github.com/guillermoBallester/querytally/internal/core/domain"
	"github.com/guillermoBallester/querytally/internal/core/port"
	"github.com/jackc/pgx/v5"
)

type traceStartKey struct{}

// AuditTracer is a pgx.QueryTracer that raises a query-start audit event for
// every statement sent over a traced connection.
type AuditTracer struct {
	hook  port.AuditHook
	lexer port.StatementLexer
	inst  port.Instrumentation
	now   func() time.Time
}

var _ pgx.QueryTracer = (*AuditTracer)(nil)

func NewAuditTracer(hook port.AuditHook, lexer port.StatementLexer, inst port.Instrumentation) *AuditTracer {
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &AuditTracer{hook: hook, lexer: lexer, inst: inst, now: time.Now}
}

func (t *AuditTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx = context.WithValue(ctx, traceStartKey{}, t.now())

	// Parsing is the expensive part; skip it while auditing is off.
	if !t.hook.Enabled() {
		return ctx
	}

	cmd, stmt := t.lexer.Lex(data.SQL)
	if stmt == nil {
		stmt = &domain.Statement{SQL: data.SQL}
	}
	if user := connUser(conn); user != "" {
		stmt.Principal = &domain.Principal{User: user}
	}
	t.hook.Notify(domain.NewQueryEvent(domain.QueryStart, cmd), stmt)

	return ctx
}

func (t *AuditTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	if start, ok := ctx.Value(traceStartKey{}).(time.Time); ok {
		t.inst.RecordQueryDuration(ctx, float64(t.now().Sub(start).Microseconds())/1000)
	}
	if data.Err != nil {
		t.inst.IncrementQueryErrors(ctx)
		return
	}
	t.inst.IncrementQueryCount(ctx)
}

func connUser(conn *pgx.Conn) string {
	if conn == nil || conn.Config() == nil {
		return ""
	}
	return conn.Config().User
}
