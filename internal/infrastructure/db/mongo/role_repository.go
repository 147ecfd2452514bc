package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type RoleRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{db: db, col: db.Collection(collectionRoles)}
}

type roleDoc struct {
	ID          string     `bson:"_id"`
	Key         string     `bson:"role_key"`
	Name        string     `bson:"name"`
	Description string     `bson:"description,omitempty"`
	IsActive    bool       `bson:"is_active"`
	IsSystem    bool       `bson:"is_system"`
	IsDefault   bool       `bson:"is_default"`
	IsDeleted   bool       `bson:"is_deleted"`
	DeletedAt   *time.Time `bson:"deleted_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

func toRoleDoc(r *domain.Role) roleDoc {
	return roleDoc{
		ID:          r.ID,
		Key:         r.Key,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		IsSystem:    r.IsSystem,
		IsDefault:   r.IsDefault,
		IsDeleted:   r.IsDeleted,
		DeletedAt:   r.DeletedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (d roleDoc) toDomain() *domain.Role {
	return &domain.Role{
		ID:          d.ID,
		Key:         d.Key,
		Name:        d.Name,
		Description: d.Description,
		IsActive:    d.IsActive,
		IsSystem:    d.IsSystem,
		IsDefault:   d.IsDefault,
		IsDeleted:   d.IsDeleted,
		DeletedAt:   d.DeletedAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func rolesFrom(docs []roleDoc) []*domain.Role {
	out := make([]*domain.Role, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toRoleDoc(role)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrRoleExists
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

func (r *RoleRepository) findOne(ctx context.Context, filter bson.M, ref string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc roleDoc
	if err := r.col.FindOne(ctx, live(filter)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRoleNotFound, ref)
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *RoleRepository) FindByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.findOne(ctx, bson.M{"_id": id}, id)
}

func (r *RoleRepository) FindByKey(ctx context.Context, key string) (*domain.Role, error) {
	return r.findOne(ctx, bson.M{"role_key": key}, key)
}

func (r *RoleRepository) findMany(ctx context.Context, filter bson.M) ([]*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs, err := findAll[roleDoc](ctx, r.col, live(filter))
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	return rolesFrom(docs), nil
}

func (r *RoleRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.findMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *RoleRepository) FindByKeys(ctx context.Context, keys []string) ([]*domain.Role, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return r.findMany(ctx, bson.M{"role_key": bson.M{"$in": keys}})
}

func (r *RoleRepository) FindDefaults(ctx context.Context) ([]*domain.Role, error) {
	return r.findMany(ctx, bson.M{"is_default": true, "is_active": true})
}

func (r *RoleRepository) List(ctx context.Context, f ports.RoleFilter) ([]*domain.Role, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := live(bson.M{})
	if f.Active != nil {
		filter["is_active"] = *f.Active
	}
	if f.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"role_key": containsFold(f.Search)},
			bson.M{"name": containsFold(f.Search)},
		}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count roles: %w", err)
	}
	docs, err := findAll[roleDoc](ctx, r.col, filter, pageOptions(f.Page, f.Limit, bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}
	return rolesFrom(docs), total, nil
}

func (r *RoleRepository) Update(ctx context.Context, role *domain.Role) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, live(bson.M{"_id": role.ID}), toRoleDoc(role))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrRoleExists
		}
		return fmt.Errorf("update role: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRoleNotFound, role.ID)
	}
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, id string, at time.Time) error {
	return inTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		return r.delete(sc, id, at)
	})
}

func (r *RoleRepository) delete(ctx context.Context, id string, at time.Time) error {
	inUse, err := r.db.Collection(collectionUserRoles).CountDocuments(ctx, bson.M{
		"role_id": id,
		"$or": bson.A{
			bson.M{"expires_at": nil},
			bson.M{"expires_at": bson.M{"$gt": at}},
		},
	})
	if err != nil {
		return fmt.Errorf("count role assignments: %w", err)
	}
	if inUse > 0 {
		return domain.ErrRoleInUse
	}

	res, err := r.col.UpdateOne(ctx, live(bson.M{"_id": id}), bson.M{
		"$set": bson.M{"is_deleted": true, "deleted_at": at, "updated_at": at},
	})
	if err != nil {
		return fmt.Errorf("soft delete role: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRoleNotFound, id)
	}

	for _, name := range []string{collectionUserRoles, collectionRolePermissions, collectionRoleMenus} {
		if _, err := r.db.Collection(name).DeleteMany(ctx, bson.M{"role_id": id}); err != nil {
			return fmt.Errorf("drop %s of role: %w", name, err)
		}
	}
	return nil
}
