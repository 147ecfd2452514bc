package ports

import (
	"context"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

type CreatePermissionInput struct {
	Key         string
	Name        string
	Type        domain.PermissionType
	Description string
	Actor       domain.Actor
}

// UpdatePermissionInput applies only the non-nil fields. The key is immutable.
type UpdatePermissionInput struct {
	ID          string
	Name        *string
	Type        *domain.PermissionType
	Description *string
	Actor       domain.Actor
}

type PermissionService interface {
	Create(ctx context.Context, in CreatePermissionInput) (*domain.Permission, error)
	Get(ctx context.Context, id string) (*domain.Permission, error)
	List(ctx context.Context, filter PermissionFilter) (*Page[*domain.Permission], error)
	Update(ctx context.Context, in UpdatePermissionInput) (*domain.Permission, error)
	Delete(ctx context.Context, id string, actor domain.Actor) error
}
