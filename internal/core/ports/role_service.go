package ports

import (
	"context"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

type CreateRoleInput struct {
	Key         string
	Name        string
	Description string
	IsDefault   bool
	Actor       domain.Actor
}

// UpdateRoleInput applies only the non-nil fields. The key is immutable.
type UpdateRoleInput struct {
	ID          string
	Name        *string
	Description *string
	IsActive    *bool
	IsDefault   *bool
	Actor       domain.Actor
}

// RolePermissionsInput addresses permissions by key.
type RolePermissionsInput struct {
	RoleID string
	Keys   []string
	Actor  domain.Actor
}

type RoleMenusInput struct {
	RoleID  string
	MenuIDs []string
	Actor   domain.Actor
}

type RoleService interface {
	Create(ctx context.Context, in CreateRoleInput) (*domain.Role, error)
	Get(ctx context.Context, id string) (*domain.Role, error)
	List(ctx context.Context, filter RoleFilter) (*Page[*domain.Role], error)
	Update(ctx context.Context, in UpdateRoleInput) (*domain.Role, error)
	Delete(ctx context.Context, id string, actor domain.Actor) error

	Permissions(ctx context.Context, roleID string) ([]*domain.Permission, error)
	ReplacePermissions(ctx context.Context, in RolePermissionsInput) ([]*domain.Permission, error)
	AssignPermissions(ctx context.Context, in RolePermissionsInput) ([]*domain.Permission, error)
	RevokePermissions(ctx context.Context, in RolePermissionsInput) ([]*domain.Permission, error)

	Menus(ctx context.Context, roleID string) ([]*domain.Menu, error)
	ReplaceMenus(ctx context.Context, in RoleMenusInput) ([]*domain.Menu, error)
}
