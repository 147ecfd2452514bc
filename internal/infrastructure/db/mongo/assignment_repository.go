package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

// AssignmentRepository stores the user_roles, role_permissions and
// role_menus collections. Each pair is unique by index.
type AssignmentRepository struct {
	db              *mongo.Database
	userRoles       *mongo.Collection
	rolePermissions *mongo.Collection
	roleMenus       *mongo.Collection
}

func NewAssignmentRepository(db *mongo.Database) *AssignmentRepository {
	return &AssignmentRepository{
		db:              db,
		userRoles:       db.Collection(collectionUserRoles),
		rolePermissions: db.Collection(collectionRolePermissions),
		roleMenus:       db.Collection(collectionRoleMenus),
	}
}

type userRoleDoc struct {
	UserID    string     `bson:"user_id"`
	RoleID    string     `bson:"role_id"`
	ExpiresAt *time.Time `bson:"expires_at"`
	CreatedAt time.Time  `bson:"created_at"`
}

type rolePermissionDoc struct {
	RoleID       string    `bson:"role_id"`
	PermissionID string    `bson:"permission_id"`
	CreatedAt    time.Time `bson:"created_at"`
}

type roleMenuDoc struct {
	RoleID    string    `bson:"role_id"`
	MenuID    string    `bson:"menu_id"`
	CreatedAt time.Time `bson:"created_at"`
}

func (r *AssignmentRepository) UserRoles(ctx context.Context, userID string) ([]domain.UserRole, error) {
	return r.findUserRoles(ctx, bson.M{"user_id": userID})
}

func (r *AssignmentRepository) UserRolesBatch(ctx context.Context, userIDs []string) ([]domain.UserRole, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return r.findUserRoles(ctx, bson.M{"user_id": bson.M{"$in": userIDs}})
}

func (r *AssignmentRepository) findUserRoles(ctx context.Context, filter bson.M) ([]domain.UserRole, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs, err := findAll[userRoleDoc](ctx, r.userRoles, filter)
	if err != nil {
		return nil, fmt.Errorf("find user roles: %w", err)
	}
	out := make([]domain.UserRole, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.UserRole(d))
	}
	return out, nil
}

func (r *AssignmentRepository) ReplaceUserRoles(ctx context.Context, userID string, assignments []domain.UserRole) error {
	return inTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		if _, err := r.userRoles.DeleteMany(sc, bson.M{"user_id": userID}); err != nil {
			return fmt.Errorf("clear user roles: %w", err)
		}
		if len(assignments) == 0 {
			return nil
		}
		docs := make([]interface{}, 0, len(assignments))
		for _, a := range assignments {
			a.UserID = userID
			docs = append(docs, userRoleDoc(a))
		}
		if _, err := r.userRoles.InsertMany(sc, docs); err != nil {
			return fmt.Errorf("insert user roles: %w", err)
		}
		return nil
	})
}

func (r *AssignmentRepository) AssignUserRole(ctx context.Context, a domain.UserRole) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.userRoles.UpdateOne(ctx,
		bson.M{"user_id": a.UserID, "role_id": a.RoleID},
		bson.M{
			"$set":         bson.M{"expires_at": a.ExpiresAt},
			"$setOnInsert": bson.M{"created_at": created},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("assign user role: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) UnassignUserRole(ctx context.Context, userID, roleID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.userRoles.DeleteOne(ctx, bson.M{"user_id": userID, "role_id": roleID}); err != nil {
		return fmt.Errorf("unassign user role: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) RolePermissions(ctx context.Context, roleIDs []string) ([]domain.RolePermission, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs, err := findAll[rolePermissionDoc](ctx, r.rolePermissions, bson.M{"role_id": bson.M{"$in": roleIDs}})
	if err != nil {
		return nil, fmt.Errorf("find role permissions: %w", err)
	}
	out := make([]domain.RolePermission, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.RolePermission(d))
	}
	return out, nil
}

func (r *AssignmentRepository) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	now := time.Now().UTC()
	return inTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		return r.replaceRolePermissions(sc, roleID, permissionIDs, now)
	})
}

func (r *AssignmentRepository) replaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string, now time.Time) error {
	if _, err := r.rolePermissions.DeleteMany(ctx, bson.M{"role_id": roleID}); err != nil {
		return fmt.Errorf("clear role permissions: %w", err)
	}
	if len(permissionIDs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		docs = append(docs, rolePermissionDoc{RoleID: roleID, PermissionID: id, CreatedAt: now})
	}
	if _, err := r.rolePermissions.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert role permissions: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) AddRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"role_id": roleID, "permission_id": id}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{"created_at": now}}).
			SetUpsert(true))
	}
	if _, err := r.rolePermissions.BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("add role permissions: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) RemoveRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.rolePermissions.DeleteMany(ctx, bson.M{"role_id": roleID, "permission_id": bson.M{"$in": permissionIDs}})
	if err != nil {
		return fmt.Errorf("remove role permissions: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) RoleMenus(ctx context.Context, roleIDs []string) ([]domain.RoleMenu, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs, err := findAll[roleMenuDoc](ctx, r.roleMenus, bson.M{"role_id": bson.M{"$in": roleIDs}})
	if err != nil {
		return nil, fmt.Errorf("find role menus: %w", err)
	}
	out := make([]domain.RoleMenu, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.RoleMenu(d))
	}
	return out, nil
}

func (r *AssignmentRepository) ReplaceRoleMenus(ctx context.Context, roleID string, menuIDs []string) error {
	now := time.Now().UTC()
	return inTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		if _, err := r.roleMenus.DeleteMany(sc, bson.M{"role_id": roleID}); err != nil {
			return fmt.Errorf("clear role menus: %w", err)
		}
		if len(menuIDs) == 0 {
			return nil
		}
		docs := make([]interface{}, 0, len(menuIDs))
		for _, id := range menuIDs {
			docs = append(docs, roleMenuDoc{RoleID: roleID, MenuID: id, CreatedAt: now})
		}
		if _, err := r.roleMenus.InsertMany(sc, docs); err != nil {
			return fmt.Errorf("insert role menus: %w", err)
		}
		return nil
	})
}
