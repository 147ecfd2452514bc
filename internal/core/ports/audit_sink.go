package ports

import "github.com/99minutos/rbac-system/internal/core/domain"

// AuditSink accepts audit records for asynchronous persistence. Emit must
// not block the caller on storage.
type AuditSink interface {
	Emit(log *domain.AuditLog)
}
