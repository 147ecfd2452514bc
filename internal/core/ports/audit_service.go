package ports

import (
	"context"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

type AuditService interface {
	List(ctx context.Context, filter AuditFilter) (*Page[*domain.AuditLog], error)
}
