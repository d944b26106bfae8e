package port

import (
	"context"

	"github.com/guillermoBallester/querytally/internal/core/domain"
)

// AuditEntry represents a single statement executed by the host.
type AuditEntry struct {
	Tool         string
	SQL          string
	User         string
	Command      domain.Command
	Tables       []domain.TableRef
	RowsReturned int
	DurationMS   int64
	Err          error
}

// QueryAuditor records host statement executions.
type QueryAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, AuditEntry) {}
func (NoopAuditor) Close() error                       { return nil }
