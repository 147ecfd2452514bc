package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type permissionService struct {
	repo ports.PermissionRepository
	sink ports.AuditSink
}

func NewPermissionService(repo ports.PermissionRepository, sink ports.AuditSink) ports.PermissionService {
	return &permissionService{repo: repo, sink: sink}
}

func (s *permissionService) Create(ctx context.Context, in ports.CreatePermissionInput) (*domain.Permission, error) {
	key := strings.TrimSpace(in.Key)
	if key == "" || strings.ContainsAny(key, " \t\n") {
		return nil, domain.Invalid("permission key must be a non-empty string without spaces")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("permission name is required")
	}
	if !in.Type.Valid() {
		return nil, domain.Invalid("permission type must be one of MENU, BUTTON, API")
	}

	now := time.Now().UTC()
	perm := &domain.Permission{
		ID:          uuid.NewString(),
		Key:         key,
		Name:        name,
		Type:        in.Type,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	auditLog := domain.NewAuditLog(in.Actor, domain.ActionPermissionCreated, domain.ResourcePermission, perm.ID)
	err := s.repo.Create(ctx, perm)
	if err == nil {
		auditLog.After = perm.Snapshot()
	}
	record(s.sink, auditLog, err)
	if err != nil {
		return nil, err
	}
	return perm, nil
}

func (s *permissionService) Get(ctx context.Context, id string) (*domain.Permission, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *permissionService) List(ctx context.Context, filter ports.PermissionFilter) (*ports.Page[*domain.Permission], error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, domain.Invalid("permission type must be one of MENU, BUTTON, API")
	}
	filter.Page, filter.Limit = ports.NormalizePage(filter.Page, filter.Limit)

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return ports.NewPage(items, total, filter.Page, filter.Limit), nil
}

func (s *permissionService) Update(ctx context.Context, in ports.UpdatePermissionInput) (*domain.Permission, error) {
	perm, err := s.repo.FindByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	before := perm.Snapshot()

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.Invalid("permission name is required")
		}
		perm.Name = name
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, domain.Invalid("permission type must be one of MENU, BUTTON, API")
		}
		perm.Type = *in.Type
	}
	if in.Description != nil {
		perm.Description = *in.Description
	}
	perm.UpdatedAt = time.Now().UTC()

	auditLog := domain.NewAuditLog(in.Actor, domain.ActionPermissionUpdated, domain.ResourcePermission, perm.ID)
	auditLog.Before = before
	err = s.repo.Update(ctx, perm)
	if err == nil {
		auditLog.After = perm.Snapshot()
	}
	record(s.sink, auditLog, err)
	if err != nil {
		return nil, err
	}
	return perm, nil
}

func (s *permissionService) Delete(ctx context.Context, id string, actor domain.Actor) error {
	perm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	auditLog := domain.NewAuditLog(actor, domain.ActionPermissionDeleted, domain.ResourcePermission, id)
	auditLog.Before = perm.Snapshot()
	err = s.repo.Delete(ctx, id)
	record(s.sink, auditLog, err)
	return err
}
