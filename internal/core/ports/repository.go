package ports

import (
	"context"
	"time"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

// Find* methods never return soft-deleted rows; a deleted record is reported
// with the same not-found error as a missing one.

// UserFilter carries the query parameters for listing users.
type UserFilter struct {
	Status domain.UserStatus // optional
	Search string            // optional: partial match on username or email
	Page   int               // 1-based
	Limit  int
}

type UserRepository interface {
	// Create stores the user together with its initial role assignments
	// atomically; on error neither is persisted.
	Create(ctx context.Context, u *domain.User, roles []domain.UserRole) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]*domain.User, int64, error)
	Update(ctx context.Context, u *domain.User) error
	// SoftDelete marks the user deleted and drops all of its role
	// assignments in one transaction.
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type RoleFilter struct {
	Search string
	Active *bool
	Page   int
	Limit  int
}

type RoleRepository interface {
	Create(ctx context.Context, r *domain.Role) error
	FindByID(ctx context.Context, id string) (*domain.Role, error)
	FindByKey(ctx context.Context, key string) (*domain.Role, error)
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Role, error)
	FindByKeys(ctx context.Context, keys []string) ([]*domain.Role, error)
	FindDefaults(ctx context.Context) ([]*domain.Role, error)
	List(ctx context.Context, filter RoleFilter) ([]*domain.Role, int64, error)
	Update(ctx context.Context, r *domain.Role) error
	// Delete fails with domain.ErrRoleInUse while any unexpired assignment
	// references the role. Otherwise it removes every UserRole, RolePermission
	// and RoleMenu row of the role and soft-deletes it, atomically.
	Delete(ctx context.Context, id string, at time.Time) error
}

type PermissionFilter struct {
	Type   domain.PermissionType
	Search string
	Page   int
	Limit  int
}

type PermissionRepository interface {
	Create(ctx context.Context, p *domain.Permission) error
	FindByID(ctx context.Context, id string) (*domain.Permission, error)
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Permission, error)
	FindByKeys(ctx context.Context, keys []string) ([]*domain.Permission, error)
	List(ctx context.Context, filter PermissionFilter) ([]*domain.Permission, int64, error)
	Update(ctx context.Context, p *domain.Permission) error
	// Delete removes the permission and its RolePermission rows atomically.
	Delete(ctx context.Context, id string) error
}

type MenuRepository interface {
	Create(ctx context.Context, m *domain.Menu) error
	FindByID(ctx context.Context, id string) (*domain.Menu, error)
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Menu, error)
	FindAll(ctx context.Context) ([]*domain.Menu, error)
	CountChildren(ctx context.Context, id string) (int64, error)
	Update(ctx context.Context, m *domain.Menu) error
	// Delete soft-deletes the menu and removes its RoleMenu rows atomically.
	Delete(ctx context.Context, id string, at time.Time) error
	// UpdateSort applies every entry or none.
	UpdateSort(ctx context.Context, items []domain.MenuSort) error
}

// AssignmentRepository owns the three join tables. Replace* methods swap the
// full set in one transaction.
type AssignmentRepository interface {
	UserRoles(ctx context.Context, userID string) ([]domain.UserRole, error)
	// UserRolesBatch returns the assignments of every listed user in one query.
	UserRolesBatch(ctx context.Context, userIDs []string) ([]domain.UserRole, error)
	ReplaceUserRoles(ctx context.Context, userID string, assignments []domain.UserRole) error
	// AssignUserRole inserts or refreshes the expiry of one assignment.
	AssignUserRole(ctx context.Context, a domain.UserRole) error
	UnassignUserRole(ctx context.Context, userID, roleID string) error

	RolePermissions(ctx context.Context, roleIDs []string) ([]domain.RolePermission, error)
	ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error
	AddRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error
	RemoveRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error

	RoleMenus(ctx context.Context, roleIDs []string) ([]domain.RoleMenu, error)
	ReplaceRoleMenus(ctx context.Context, roleID string, menuIDs []string) error
}

// AuditFilter carries the query parameters for the audit trail.
type AuditFilter struct {
	ActorID      string
	Action       domain.AuditAction
	ResourceType domain.ResourceType
	ResourceID   string
	Result       domain.AuditResult
	From         time.Time // optional: timestamp >= From
	To           time.Time // optional: timestamp <= To
	Page         int
	Limit        int
}

type AuditRepository interface {
	Insert(ctx context.Context, log *domain.AuditLog) error
	List(ctx context.Context, filter AuditFilter) ([]*domain.AuditLog, int64, error)
}

// Repositories bundles one storage backend.
type Repositories struct {
	Users       UserRepository
	Roles       RoleRepository
	Permissions PermissionRepository
	Menus       MenuRepository
	Assignments AssignmentRepository
	Audit       AuditRepository
}
