package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type roleService struct {
	roles       ports.RoleRepository
	permissions ports.PermissionRepository
	menus       ports.MenuRepository
	assignments ports.AssignmentRepository
	sink        ports.AuditSink
}

func NewRoleService(repos ports.Repositories, sink ports.AuditSink) ports.RoleService {
	return &roleService{
		roles:       repos.Roles,
		permissions: repos.Permissions,
		menus:       repos.Menus,
		assignments: repos.Assignments,
		sink:        sink,
	}
}

func (s *roleService) Create(ctx context.Context, in ports.CreateRoleInput) (*domain.Role, error) {
	if !domain.ValidRoleKey(in.Key) {
		return nil, domain.ErrInvalidRoleKey
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("role name is required")
	}

	now := time.Now().UTC()
	role := &domain.Role{
		ID:          uuid.NewString(),
		Key:         in.Key,
		Name:        name,
		Description: in.Description,
		IsActive:    true,
		IsDefault:   in.IsDefault,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	auditLog := domain.NewAuditLog(in.Actor, domain.ActionRoleCreated, domain.ResourceRole, role.ID)
	err := s.roles.Create(ctx, role)
	if err == nil {
		auditLog.After = role.Snapshot()
	}
	record(s.sink, auditLog, err)
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (s *roleService) Get(ctx context.Context, id string) (*domain.Role, error) {
	return s.roles.FindByID(ctx, id)
}

func (s *roleService) List(ctx context.Context, filter ports.RoleFilter) (*ports.Page[*domain.Role], error) {
	filter.Page, filter.Limit = ports.NormalizePage(filter.Page, filter.Limit)
	items, total, err := s.roles.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return ports.NewPage(items, total, filter.Page, filter.Limit), nil
}

func (s *roleService) Update(ctx context.Context, in ports.UpdateRoleInput) (*domain.Role, error) {
	role, err := s.roles.FindByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	before := role.Snapshot()

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.Invalid("role name is required")
		}
		role.Name = name
	}
	if in.Description != nil {
		role.Description = *in.Description
	}
	if in.IsActive != nil {
		role.IsActive = *in.IsActive
	}
	if in.IsDefault != nil {
		role.IsDefault = *in.IsDefault
	}
	role.UpdatedAt = time.Now().UTC()

	auditLog := domain.NewAuditLog(in.Actor, domain.ActionRoleUpdated, domain.ResourceRole, role.ID)
	auditLog.Before = before
	err = s.roles.Update(ctx, role)
	if err == nil {
		auditLog.After = role.Snapshot()
	}
	record(s.sink, auditLog, err)
	if err != nil {
		return nil, err
	}
	return role, nil
}

// Delete refuses system and default roles. The repository refuses roles
// that are still assigned.
func (s *roleService) Delete(ctx context.Context, id string, actor domain.Actor) error {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return err
	}

	auditLog := domain.NewAuditLog(actor, domain.ActionRoleDeleted, domain.ResourceRole, id)
	auditLog.Before = role.Snapshot()
	if role.Protected() {
		record(s.sink, auditLog, domain.ErrRoleProtected)
		return domain.ErrRoleProtected
	}

	err = s.roles.Delete(ctx, id, time.Now().UTC())
	record(s.sink, auditLog, err)
	return err
}

func (s *roleService) Permissions(ctx context.Context, roleID string) ([]*domain.Permission, error) {
	if _, err := s.roles.FindByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.rolePermissions(ctx, roleID)
}

func (s *roleService) rolePermissions(ctx context.Context, roleID string) ([]*domain.Permission, error) {
	rows, err := s.assignments.RolePermissions(ctx, []string{roleID})
	if err != nil {
		return nil, fmt.Errorf("role permissions: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for _, rp := range rows {
		ids = append(ids, rp.PermissionID)
	}
	if len(ids) == 0 {
		return []*domain.Permission{}, nil
	}

	perms, err := s.permissions.FindByIDs(ctx, uniq(ids))
	if err != nil {
		return nil, fmt.Errorf("role permissions: %w", err)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Key < perms[j].Key })
	return perms, nil
}

func (s *roleService) ReplacePermissions(ctx context.Context, in ports.RolePermissionsInput) ([]*domain.Permission, error) {
	return s.changePermissions(ctx, in, s.assignments.ReplaceRolePermissions)
}

func (s *roleService) AssignPermissions(ctx context.Context, in ports.RolePermissionsInput) ([]*domain.Permission, error) {
	return s.changePermissions(ctx, in, s.assignments.AddRolePermissions)
}

func (s *roleService) RevokePermissions(ctx context.Context, in ports.RolePermissionsInput) ([]*domain.Permission, error) {
	return s.changePermissions(ctx, in, s.assignments.RemoveRolePermissions)
}

func (s *roleService) changePermissions(
	ctx context.Context,
	in ports.RolePermissionsInput,
	apply func(ctx context.Context, roleID string, permissionIDs []string) error,
) ([]*domain.Permission, error) {
	if _, err := s.roles.FindByID(ctx, in.RoleID); err != nil {
		return nil, err
	}
	perms, err := permissionsByKeys(ctx, s.permissions, in.Keys)
	if err != nil {
		return nil, err
	}
	before, err := s.rolePermissions(ctx, in.RoleID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}

	auditLog := domain.NewAuditLog(in.Actor, domain.ActionRolePermissionsChanged, domain.ResourceRole, in.RoleID)
	auditLog.Before = keysSnapshot(permissionKeys(before))
	if err := apply(ctx, in.RoleID, ids); err != nil {
		record(s.sink, auditLog, err)
		return nil, err
	}

	after, err := s.rolePermissions(ctx, in.RoleID)
	if err != nil {
		return nil, err
	}
	auditLog.After = keysSnapshot(permissionKeys(after))
	record(s.sink, auditLog, nil)
	return after, nil
}

func (s *roleService) Menus(ctx context.Context, roleID string) ([]*domain.Menu, error) {
	if _, err := s.roles.FindByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.roleMenus(ctx, roleID)
}

func (s *roleService) roleMenus(ctx context.Context, roleID string) ([]*domain.Menu, error) {
	rows, err := s.assignments.RoleMenus(ctx, []string{roleID})
	if err != nil {
		return nil, fmt.Errorf("role menus: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for _, rm := range rows {
		ids = append(ids, rm.MenuID)
	}
	if len(ids) == 0 {
		return []*domain.Menu{}, nil
	}

	menus, err := s.menus.FindByIDs(ctx, uniq(ids))
	if err != nil {
		return nil, fmt.Errorf("role menus: %w", err)
	}
	domain.SortMenus(menus)
	return menus, nil
}

func (s *roleService) ReplaceMenus(ctx context.Context, in ports.RoleMenusInput) ([]*domain.Menu, error) {
	if _, err := s.roles.FindByID(ctx, in.RoleID); err != nil {
		return nil, err
	}

	ids := uniq(in.MenuIDs)
	if len(ids) > 0 {
		menus, err := s.menus.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		found := make(map[string]struct{}, len(menus))
		for _, m := range menus {
			found[m.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				return nil, fmt.Errorf("%w: %s", domain.ErrMenuNotFound, id)
			}
		}
	}

	before, err := s.roleMenus(ctx, in.RoleID)
	if err != nil {
		return nil, err
	}

	auditLog := domain.NewAuditLog(in.Actor, domain.ActionRoleMenusChanged, domain.ResourceRole, in.RoleID)
	auditLog.Before = map[string]any{"menu_ids": menuIDs(before)}
	if err := s.assignments.ReplaceRoleMenus(ctx, in.RoleID, ids); err != nil {
		record(s.sink, auditLog, err)
		return nil, err
	}

	after, err := s.roleMenus(ctx, in.RoleID)
	if err != nil {
		return nil, err
	}
	auditLog.After = map[string]any{"menu_ids": menuIDs(after)}
	record(s.sink, auditLog, nil)
	return after, nil
}

// permissionsByKeys loads every named permission or fails on the first
// unknown key.
func permissionsByKeys(ctx context.Context, repo ports.PermissionRepository, keys []string) ([]*domain.Permission, error) {
	keys = uniq(keys)
	if len(keys) == 0 {
		return []*domain.Permission{}, nil
	}
	perms, err := repo.FindByKeys(ctx, keys)
	if err != nil {
		return nil, err
	}
	found := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		found[p.Key] = struct{}{}
	}
	for _, k := range keys {
		if _, ok := found[k]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrPermissionNotFound, k)
		}
	}
	return perms, nil
}

func permissionKeys(perms []*domain.Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.Key)
	}
	return out
}

func menuIDs(menus []*domain.Menu) []string {
	out := make([]string, 0, len(menus))
	for _, m := range menus {
		out = append(out, m.ID)
	}
	return out
}
