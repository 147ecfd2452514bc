package ports

import (
	"context"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

// AccessService answers "what may this user do". Every call re-reads the
// store; there is no caching layer.
type AccessService interface {
	ResolvePermissions(ctx context.Context, userID string) (*domain.Resolution, error)
	CheckPermission(ctx context.Context, userID, key string) (bool, error)
	CanAccessPath(ctx context.Context, userID, path string) (bool, error)
	UserMenus(ctx context.Context, userID string) ([]*domain.MenuNode, error)
	// PermissionMenus builds the navigation tree from every enabled menu
	// whose permission key is empty or held by the user, then prunes
	// pathless branches left without children.
	PermissionMenus(ctx context.Context, userID string) ([]*domain.MenuNode, error)
	// UserPermissions returns the resolved permission records, optionally
	// restricted to one type (empty type returns all).
	UserPermissions(ctx context.Context, userID string, typ domain.PermissionType) ([]*domain.Permission, error)
}
