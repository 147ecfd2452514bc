package service

import (
	"context"
	"fmt"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

// record hands a finished audit entry to the sink. A nil sink drops it.
func record(sink ports.AuditSink, log *domain.AuditLog, err error) {
	if sink == nil {
		return
	}
	sink.Emit(log.Outcome(err))
}

func keysSnapshot(keys []string) map[string]any {
	if keys == nil {
		keys = []string{}
	}
	return map[string]any{"keys": keys}
}

type auditService struct {
	repo ports.AuditRepository
}

func NewAuditService(repo ports.AuditRepository) ports.AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) List(ctx context.Context, filter ports.AuditFilter) (*ports.Page[*domain.AuditLog], error) {
	filter.Page, filter.Limit = ports.NormalizePage(filter.Page, filter.Limit)
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, domain.Invalid("to must not be before from")
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return ports.NewPage(items, total, filter.Page, filter.Limit), nil
}
