package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

type MenuRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewMenuRepository(db *mongo.Database) *MenuRepository {
	return &MenuRepository{db: db, col: db.Collection(collectionMenus)}
}

type menuDoc struct {
	ID            string     `bson:"_id"`
	Name          string     `bson:"name"`
	Path          string     `bson:"path"`
	Icon          string     `bson:"icon,omitempty"`
	PermissionKey string     `bson:"permission_key,omitempty"`
	ParentID      string     `bson:"parent_id"`
	Sort          int        `bson:"sort"`
	IsVisible     bool       `bson:"is_visible"`
	IsEnabled     bool       `bson:"is_enabled"`
	IsDeleted     bool       `bson:"is_deleted"`
	DeletedAt     *time.Time `bson:"deleted_at,omitempty"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
}

func toMenuDoc(m *domain.Menu) menuDoc {
	return menuDoc{
		ID:            m.ID,
		Name:          m.Name,
		Path:          m.Path,
		Icon:          m.Icon,
		PermissionKey: m.PermissionKey,
		ParentID:      m.ParentID,
		Sort:          m.Sort,
		IsVisible:     m.IsVisible,
		IsEnabled:     m.IsEnabled,
		IsDeleted:     m.IsDeleted,
		DeletedAt:     m.DeletedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (d menuDoc) toDomain() *domain.Menu {
	return &domain.Menu{
		ID:            d.ID,
		Name:          d.Name,
		Path:          d.Path,
		Icon:          d.Icon,
		PermissionKey: d.PermissionKey,
		ParentID:      d.ParentID,
		Sort:          d.Sort,
		IsVisible:     d.IsVisible,
		IsEnabled:     d.IsEnabled,
		IsDeleted:     d.IsDeleted,
		DeletedAt:     d.DeletedAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

var menuOrder = bson.D{{Key: "sort", Value: 1}, {Key: "_id", Value: 1}}

func (r *MenuRepository) Create(ctx context.Context, m *domain.Menu) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toMenuDoc(m)); err != nil {
		return fmt.Errorf("insert menu: %w", err)
	}
	return nil
}

func (r *MenuRepository) FindByID(ctx context.Context, id string) (*domain.Menu, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc menuDoc
	if err := r.col.FindOne(ctx, live(bson.M{"_id": id})).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMenuNotFound, id)
		}
		return nil, fmt.Errorf("find menu: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MenuRepository) find(ctx context.Context, filter bson.M) ([]*domain.Menu, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs, err := findAll[menuDoc](ctx, r.col, live(filter), pageOptions(0, 0, menuOrder))
	if err != nil {
		return nil, fmt.Errorf("find menus: %w", err)
	}
	menus := make([]*domain.Menu, 0, len(docs))
	for _, d := range docs {
		menus = append(menus, d.toDomain())
	}
	return menus, nil
}

func (r *MenuRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Menu, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MenuRepository) FindAll(ctx context.Context) ([]*domain.Menu, error) {
	return r.find(ctx, bson.M{})
}

func (r *MenuRepository) CountChildren(ctx context.Context, id string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, live(bson.M{"parent_id": id}))
	if err != nil {
		return 0, fmt.Errorf("count child menus: %w", err)
	}
	return n, nil
}

func (r *MenuRepository) Update(ctx context.Context, m *domain.Menu) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, live(bson.M{"_id": m.ID}), toMenuDoc(m))
	if err != nil {
		return fmt.Errorf("update menu: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", domain.ErrMenuNotFound, m.ID)
	}
	return nil
}

func (r *MenuRepository) Delete(ctx context.Context, id string, at time.Time) error {
	return inTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		res, err := r.col.UpdateOne(sc, live(bson.M{"_id": id}), bson.M{
			"$set": bson.M{"is_deleted": true, "deleted_at": at, "updated_at": at},
		})
		if err != nil {
			return fmt.Errorf("soft delete menu: %w", err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("%w: %s", domain.ErrMenuNotFound, id)
		}
		if _, err := r.db.Collection(collectionRoleMenus).DeleteMany(sc, bson.M{"menu_id": id}); err != nil {
			return fmt.Errorf("drop role menus: %w", err)
		}
		return nil
	})
}

func (r *MenuRepository) UpdateSort(ctx context.Context, items []domain.MenuSort) error {
	now := time.Now().UTC()
	return inTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		return r.updateSort(sc, items, now)
	})
}

func (r *MenuRepository) updateSort(ctx context.Context, items []domain.MenuSort, now time.Time) error {
	for _, it := range items {
		res, err := r.col.UpdateOne(ctx, live(bson.M{"_id": it.ID}), bson.M{
			"$set": bson.M{"sort": it.Sort, "updated_at": now},
		})
		if err != nil {
			return fmt.Errorf("update menu sort: %w", err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("%w: %s", domain.ErrMenuNotFound, it.ID)
		}
	}
	return nil
}
