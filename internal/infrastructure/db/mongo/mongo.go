// Package mongo is the MongoDB storage backend. Multi-document operations
// run in session transactions and therefore need a replica set.
package mongo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/rbac-system/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

const (
	collectionUsers           = "users"
	collectionRoles           = "roles"
	collectionPermissions     = "permissions"
	collectionMenus           = "menus"
	collectionUserRoles       = "user_roles"
	collectionRolePermissions = "role_permissions"
	collectionRoleMenus       = "role_menus"
	collectionAuditLogs       = "audit_logs"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

// NewRepositories wires every repository against db.
func NewRepositories(db *mongo.Database) ports.Repositories {
	return ports.Repositories{
		Users:       NewUserRepository(db),
		Roles:       NewRoleRepository(db),
		Permissions: NewPermissionRepository(db),
		Menus:       NewMenuRepository(db),
		Assignments: NewAssignmentRepository(db),
		Audit:       NewAuditRepository(db),
	}
}

// EnsureIndexes creates the unique keys and lookup indexes of every
// collection. Uniqueness of user names and role keys only applies to live
// documents.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	liveOnly := bson.M{"is_deleted": false}
	specs := map[string][]mongo.IndexModel{
		collectionUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetPartialFilterExpression(liveOnly)},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		collectionRoles: {
			{Keys: bson.D{{Key: "role_key", Value: 1}}, Options: options.Index().SetUnique(true).SetPartialFilterExpression(liveOnly)},
			{Keys: bson.D{{Key: "is_default", Value: 1}}},
		},
		collectionPermissions: {
			{Keys: bson.D{{Key: "permission_key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "type", Value: 1}}},
		},
		collectionMenus: {
			{Keys: bson.D{{Key: "parent_id", Value: 1}, {Key: "sort", Value: 1}}},
		},
		collectionUserRoles: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "role_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role_id", Value: 1}}},
		},
		collectionRolePermissions: {
			{Keys: bson.D{{Key: "role_id", Value: 1}, {Key: "permission_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "permission_id", Value: 1}}},
		},
		collectionRoleMenus: {
			{Keys: bson.D{{Key: "role_id", Value: 1}, {Key: "menu_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "menu_id", Value: 1}}},
		},
		collectionAuditLogs: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "resource_type", Value: 1}, {Key: "resource_id", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
	}

	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// inTransaction runs fn inside a session transaction. Errors returned by fn
// abort the transaction and are returned unchanged.
func inTransaction(ctx context.Context, db *mongo.Database, fn func(sc mongo.SessionContext) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// live adds the soft-delete predicate to filter.
func live(filter bson.M) bson.M {
	filter["is_deleted"] = bson.M{"$ne": true}
	return filter
}

// containsFold builds a case-insensitive substring match.
func containsFold(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

func pageOptions(page, limit int, sort bson.D) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if limit > 0 {
		if page < 1 {
			page = 1
		}
		opts.SetSkip(int64((page - 1) * limit)).SetLimit(int64(limit))
	}
	return opts
}

// findAll decodes every document matched by filter.
func findAll[T any](ctx context.Context, col *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var docs []T
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
