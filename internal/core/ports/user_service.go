package ports

import (
	"context"
	"time"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

type CreateUserInput struct {
	Username string
	Password string
	Email    string
	RoleKeys []string
	Actor    domain.Actor
}

// UpdateUserInput applies only the non-nil fields.
type UpdateUserInput struct {
	ID       string
	Email    *string
	Password *string
	Actor    domain.Actor
}

type ChangeUserStatusInput struct {
	ID     string
	Status domain.UserStatus
	Actor  domain.Actor
}

type ReplaceUserRolesInput struct {
	UserID   string
	RoleKeys []string
	Actor    domain.Actor
}

type AssignUserRoleInput struct {
	UserID    string
	RoleKey   string
	ExpiresAt *time.Time
	Actor     domain.Actor
}

// UserRoleView is one role held by a user.
type UserRoleView struct {
	Role       *domain.Role `json:"role"`
	ExpiresAt  *time.Time   `json:"expires_at,omitempty"`
	AssignedAt time.Time    `json:"assigned_at"`
	Expired    bool         `json:"expired"`
}

type UserService interface {
	Create(ctx context.Context, in CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) (*Page[*domain.User], error)
	Update(ctx context.Context, in UpdateUserInput) (*domain.User, error)
	ChangeStatus(ctx context.Context, in ChangeUserStatusInput) (*domain.User, error)
	Delete(ctx context.Context, id string, actor domain.Actor) error

	Roles(ctx context.Context, userID string) ([]UserRoleView, error)
	// BatchRoles maps each requested user id to its role views. Unknown
	// users map to an empty list.
	BatchRoles(ctx context.Context, userIDs []string) (map[string][]UserRoleView, error)
	ReplaceRoles(ctx context.Context, in ReplaceUserRolesInput) ([]UserRoleView, error)
	AssignRole(ctx context.Context, in AssignUserRoleInput) ([]UserRoleView, error)
	UnassignRole(ctx context.Context, userID, roleKey string, actor domain.Actor) error
}
