package ports

import (
	"context"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

type CreateMenuInput struct {
	Name          string
	Path          string
	Icon          string
	PermissionKey string
	ParentID      string
	Sort          int
	IsVisible     bool
	IsEnabled     bool
	Actor         domain.Actor
}

// UpdateMenuInput applies only the non-nil fields. A non-nil empty ParentID
// moves the menu to the top level.
type UpdateMenuInput struct {
	ID            string
	Name          *string
	Path          *string
	Icon          *string
	PermissionKey *string
	ParentID      *string
	Sort          *int
	IsVisible     *bool
	IsEnabled     *bool
	Actor         domain.Actor
}

type SortMenusInput struct {
	Items []domain.MenuSort
	Actor domain.Actor
}

type MenuService interface {
	Create(ctx context.Context, in CreateMenuInput) (*domain.Menu, error)
	Get(ctx context.Context, id string) (*domain.Menu, error)
	List(ctx context.Context) ([]*domain.Menu, error)
	// Tree returns every live menu as a forest, hidden and disabled included.
	Tree(ctx context.Context) ([]*domain.MenuNode, error)
	Update(ctx context.Context, in UpdateMenuInput) (*domain.Menu, error)
	Delete(ctx context.Context, id string, actor domain.Actor) error
	Sort(ctx context.Context, in SortMenusInput) error
	Logs(ctx context.Context, menuID string, page, limit int) (*Page[*domain.AuditLog], error)
}
