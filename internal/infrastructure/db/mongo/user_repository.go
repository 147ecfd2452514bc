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

type UserRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{db: db, col: db.Collection(collectionUsers)}
}

type userDoc struct {
	ID           string     `bson:"_id"`
	Username     string     `bson:"username"`
	Email        string     `bson:"email,omitempty"`
	PasswordHash string     `bson:"password_hash"`
	Status       string     `bson:"status"`
	IsActive     bool       `bson:"is_active"`
	IsDeleted    bool       `bson:"is_deleted"`
	DeletedAt    *time.Time `bson:"deleted_at,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func toUserDoc(u *domain.User) userDoc {
	return userDoc{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Status:       string(u.Status),
		IsActive:     u.IsActive,
		IsDeleted:    u.IsDeleted,
		DeletedAt:    u.DeletedAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Status:       domain.UserStatus(d.Status),
		IsActive:     d.IsActive,
		IsDeleted:    d.IsDeleted,
		DeletedAt:    d.DeletedAt,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Create inserts the user and its role assignments in one transaction, so a
// failed role write leaves no account behind.
func (r *UserRepository) Create(ctx context.Context, u *domain.User, roles []domain.UserRole) error {
	return inTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		return r.create(sc, u, roles)
	})
}

func (r *UserRepository) create(ctx context.Context, u *domain.User, roles []domain.UserRole) error {
	if _, err := r.col.InsertOne(ctx, toUserDoc(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	if len(roles) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(roles))
	for _, a := range roles {
		a.UserID = u.ID
		docs = append(docs, userRoleDoc(a))
	}
	if _, err := r.db.Collection(collectionUserRoles).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert user roles: %w", err)
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.col.FindOne(ctx, live(filter)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) List(ctx context.Context, f ports.UserFilter) ([]*domain.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := live(bson.M{})
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"username": containsFold(f.Search)},
			bson.M{"email": containsFold(f.Search)},
		}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	docs, err := findAll[userDoc](ctx, r.col, filter, pageOptions(f.Page, f.Limit, bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, total, nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, live(bson.M{"_id": u.ID}), toUserDoc(u))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return inTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		res, err := r.col.UpdateOne(sc, live(bson.M{"_id": id}), bson.M{
			"$set": bson.M{"is_deleted": true, "deleted_at": at, "updated_at": at},
		})
		if err != nil {
			return fmt.Errorf("soft delete user: %w", err)
		}
		if res.MatchedCount == 0 {
			return domain.ErrUserNotFound
		}

		if _, err := r.db.Collection(collectionUserRoles).DeleteMany(sc, bson.M{"user_id": id}); err != nil {
			return fmt.Errorf("drop user roles: %w", err)
		}
		return nil
	})
}
