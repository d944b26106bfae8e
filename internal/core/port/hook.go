package port

import "github.com/guillermoBallester/querytally/internal/core/domain"

// AuditHook receives the host's audit events.
type AuditHook interface {
	Notify(ev domain.Event, stmt *domain.Statement) int
	Enabled() bool
}
