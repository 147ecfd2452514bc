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

type PermissionRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewPermissionRepository(db *mongo.Database) *PermissionRepository {
	return &PermissionRepository{db: db, col: db.Collection(collectionPermissions)}
}

type permissionDoc struct {
	ID          string    `bson:"_id"`
	Key         string    `bson:"permission_key"`
	Name        string    `bson:"name"`
	Type        string    `bson:"type"`
	Description string    `bson:"description,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toPermissionDoc(p *domain.Permission) permissionDoc {
	return permissionDoc{
		ID:          p.ID,
		Key:         p.Key,
		Name:        p.Name,
		Type:        string(p.Type),
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (d permissionDoc) toDomain() *domain.Permission {
	return &domain.Permission{
		ID:          d.ID,
		Key:         d.Key,
		Name:        d.Name,
		Type:        domain.PermissionType(d.Type),
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func permissionsFrom(docs []permissionDoc) []*domain.Permission {
	out := make([]*domain.Permission, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out
}

func (r *PermissionRepository) Create(ctx context.Context, p *domain.Permission) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toPermissionDoc(p)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrPermissionExists
		}
		return fmt.Errorf("insert permission: %w", err)
	}
	return nil
}

func (r *PermissionRepository) FindByID(ctx context.Context, id string) (*domain.Permission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc permissionDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPermissionNotFound, id)
		}
		return nil, fmt.Errorf("find permission: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *PermissionRepository) findMany(ctx context.Context, filter bson.M) ([]*domain.Permission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs, err := findAll[permissionDoc](ctx, r.col, filter)
	if err != nil {
		return nil, fmt.Errorf("find permissions: %w", err)
	}
	return permissionsFrom(docs), nil
}

func (r *PermissionRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.findMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *PermissionRepository) FindByKeys(ctx context.Context, keys []string) ([]*domain.Permission, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return r.findMany(ctx, bson.M{"permission_key": bson.M{"$in": keys}})
}

func (r *PermissionRepository) List(ctx context.Context, f ports.PermissionFilter) ([]*domain.Permission, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Type != "" {
		filter["type"] = string(f.Type)
	}
	if f.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"permission_key": containsFold(f.Search)},
			bson.M{"name": containsFold(f.Search)},
		}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count permissions: %w", err)
	}
	docs, err := findAll[permissionDoc](ctx, r.col, filter, pageOptions(f.Page, f.Limit, bson.D{{Key: "permission_key", Value: 1}}))
	if err != nil {
		return nil, 0, fmt.Errorf("list permissions: %w", err)
	}
	return permissionsFrom(docs), total, nil
}

func (r *PermissionRepository) Update(ctx context.Context, p *domain.Permission) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, toPermissionDoc(p))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrPermissionExists
		}
		return fmt.Errorf("update permission: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", domain.ErrPermissionNotFound, p.ID)
	}
	return nil
}

func (r *PermissionRepository) Delete(ctx context.Context, id string) error {
	return inTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		res, err := r.col.DeleteOne(sc, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("delete permission: %w", err)
		}
		if res.DeletedCount == 0 {
			return fmt.Errorf("%w: %s", domain.ErrPermissionNotFound, id)
		}
		if _, err := r.db.Collection(collectionRolePermissions).DeleteMany(sc, bson.M{"permission_id": id}); err != nil {
			return fmt.Errorf("drop role permissions: %w", err)
		}
		return nil
	})
}
