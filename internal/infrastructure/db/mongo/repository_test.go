package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

func TestUserRepository_FindByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "rbac.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "u1"},
			{Key: "username", Value: "alice"},
			{Key: "status", Value: "ACTIVE"},
			{Key: "is_active", Value: true},
			{Key: "is_deleted", Value: false},
			{Key: "created_at", Value: created},
		}))

		u, err := NewUserRepository(mt.DB).FindByID(context.Background(), "u1")
		require.NoError(mt, err)
		assert.Equal(mt, "alice", u.Username)
		assert.Equal(mt, domain.UserActive, u.Status)
		assert.True(mt, u.CanAct())
		assert.True(mt, u.CreatedAt.Equal(created))
	})

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rbac.users", mtest.FirstBatch))

		_, err := NewUserRepository(mt.DB).FindByID(context.Background(), "missing")
		assert.ErrorIs(mt, err, domain.ErrUserNotFound)
		assert.ErrorIs(mt, err, domain.ErrNotFound)
	})
}

func TestUserRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate username", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		err := NewUserRepository(mt.DB).create(context.Background(), &domain.User{ID: "u1", Username: "alice"}, nil)
		assert.ErrorIs(mt, err, domain.ErrUserExists)
	})

	mt.Run("role write failure is returned", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 112, Message: "write conflict"}),
		)

		err := NewUserRepository(mt.DB).create(context.Background(), &domain.User{ID: "u1", Username: "alice"},
			[]domain.UserRole{{RoleID: "r1"}})
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "insert user roles")
	})

	mt.Run("user and roles inserted", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}),
		)

		err := NewUserRepository(mt.DB).create(context.Background(), &domain.User{ID: "u1", Username: "alice"},
			[]domain.UserRole{{RoleID: "r1"}, {RoleID: "r2"}})
		require.NoError(mt, err)
		assert.Equal(mt, []string{"users", "user_roles"}, commandTargets(mt, "insert"))
	})
}

func TestRoleRepository_Delete(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mt.Run("in use", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rbac.user_roles", mtest.FirstBatch,
			bson.D{{Key: "n", Value: int64(2)}}))

		err := NewRoleRepository(mt.DB).delete(context.Background(), "r1", at)
		assert.ErrorIs(mt, err, domain.ErrRoleInUse)
		assert.Empty(mt, commandTargets(mt, "update"))
	})

	mt.Run("missing role", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "rbac.user_roles", mtest.FirstBatch),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		err := NewRoleRepository(mt.DB).delete(context.Background(), "r1", at)
		assert.ErrorIs(mt, err, domain.ErrRoleNotFound)
		assert.Empty(mt, commandTargets(mt, "delete"))
	})

	mt.Run("removes join rows", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "rbac.user_roles", mtest.FirstBatch),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		require.NoError(mt, NewRoleRepository(mt.DB).delete(context.Background(), "r1", at))
		assert.Equal(mt, []string{"roles"}, commandTargets(mt, "update"))
		assert.Equal(mt, []string{"user_roles", "role_permissions", "role_menus"}, commandTargets(mt, "delete"))
	})
}

func TestAssignmentRepository_ReplaceRolePermissions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mt.Run("clears then inserts", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 4}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}),
		)

		err := NewAssignmentRepository(mt.DB).replaceRolePermissions(context.Background(), "r1", []string{"p1", "p2"}, now)
		require.NoError(mt, err)
		assert.Equal(mt, []string{"role_permissions"}, commandTargets(mt, "delete"))
		assert.Equal(mt, []string{"role_permissions"}, commandTargets(mt, "insert"))
	})

	mt.Run("empty list only clears", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 4}))

		err := NewAssignmentRepository(mt.DB).replaceRolePermissions(context.Background(), "r1", nil, now)
		require.NoError(mt, err)
		assert.Empty(mt, commandTargets(mt, "insert"))
	})

	mt.Run("insert failure", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "boom"}),
		)

		err := NewAssignmentRepository(mt.DB).replaceRolePermissions(context.Background(), "r1", []string{"p1"}, now)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "insert role permissions")
	})
}

func TestAssignmentRepository_UserRolesBatch(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("one query for all users", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rbac.user_roles", mtest.FirstBatch,
			bson.D{{Key: "user_id", Value: "u1"}, {Key: "role_id", Value: "r1"}},
			bson.D{{Key: "user_id", Value: "u2"}, {Key: "role_id", Value: "r1"}},
		))

		got, err := NewAssignmentRepository(mt.DB).UserRolesBatch(context.Background(), []string{"u1", "u2"})
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "u2", got[1].UserID)

		var finds int
		for _, evt := range mt.GetAllStartedEvents() {
			if evt.CommandName != "find" {
				continue
			}
			finds++
			filter := evt.Command.Lookup("filter").Document()
			in := filter.Lookup("user_id", "$in").Array()
			values, err := in.Values()
			require.NoError(mt, err)
			assert.Len(mt, values, 2)
		}
		assert.Equal(mt, 1, finds)
	})

	mt.Run("empty input skips the query", func(mt *mtest.T) {
		got, err := NewAssignmentRepository(mt.DB).UserRolesBatch(context.Background(), nil)
		require.NoError(mt, err)
		assert.Empty(mt, got)
	})
}

func TestMenuRepository_UpdateSort(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mt.Run("all matched", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		err := NewMenuRepository(mt.DB).updateSort(context.Background(), []domain.MenuSort{{ID: "m1", Sort: 2}, {ID: "m2", Sort: 1}}, now)
		require.NoError(mt, err)
	})

	mt.Run("missing id", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		err := NewMenuRepository(mt.DB).updateSort(context.Background(), []domain.MenuSort{{ID: "m1", Sort: 2}, {ID: "ghost", Sort: 1}}, now)
		assert.ErrorIs(mt, err, domain.ErrMenuNotFound)
		assert.Contains(mt, err.Error(), "ghost")
	})
}

func TestMenuRepository_CountChildren(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("counts live children", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rbac.menus", mtest.FirstBatch,
			bson.D{{Key: "n", Value: int64(3)}}))

		n, err := NewMenuRepository(mt.DB).CountChildren(context.Background(), "m1")
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)
	})

	mt.Run("missing id counts zero", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rbac.menus", mtest.FirstBatch))

		n, err := NewMenuRepository(mt.DB).CountChildren(context.Background(), "ghost")
		require.NoError(mt, err)
		assert.Zero(mt, n)
	})
}

// commandTargets lists the collections the named write command was sent to.
func commandTargets(mt *mtest.T, command string) []string {
	var out []string
	for _, evt := range mt.GetAllStartedEvents() {
		if evt.CommandName != command {
			continue
		}
		out = append(out, evt.Command.Lookup(command).StringValue())
	}
	return out
}

func TestRoleRepository_UpdateMissing(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("no match", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := NewRoleRepository(mt.DB).Update(context.Background(), &domain.Role{ID: "r1", Key: "ops"})
		assert.ErrorIs(mt, err, domain.ErrRoleNotFound)
	})
}

func TestPermissionRepository_FindByKeys(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes batch", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rbac.permissions", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "p1"}, {Key: "permission_key", Value: "menu:user:list"}, {Key: "type", Value: "MENU"}},
			bson.D{{Key: "_id", Value: "p2"}, {Key: "permission_key", Value: "btn:user:add"}, {Key: "type", Value: "BUTTON"}},
		))

		perms, err := NewPermissionRepository(mt.DB).FindByKeys(context.Background(), []string{"menu:user:list", "btn:user:add"})
		require.NoError(mt, err)
		require.Len(mt, perms, 2)
		assert.Equal(mt, domain.PermissionButton, perms[1].Type)
	})

	mt.Run("empty input skips the query", func(mt *mtest.T) {
		perms, err := NewPermissionRepository(mt.DB).FindByKeys(context.Background(), nil)
		require.NoError(mt, err)
		assert.Empty(mt, perms)
	})
}

func TestAuditRepository_Insert(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		entry := domain.NewAuditLog(domain.Actor{ID: "admin"}, domain.ActionRoleCreated, domain.ResourceRole, "r1")
		entry.ID = "a1"
		entry.After = map[string]any{"role_key": "ops"}
		require.NoError(mt, NewAuditRepository(mt.DB).Insert(context.Background(), entry))
	})

	mt.Run("server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "boom"}))

		entry := domain.NewAuditLog(domain.Actor{}, domain.ActionLogin, domain.ResourceSession, "s1")
		entry.ID = "a2"
		err := NewAuditRepository(mt.DB).Insert(context.Background(), entry)
		require.Error(mt, err)
		assert.False(mt, errors.Is(err, domain.ErrNotFound))
	})
}

func TestHelpers(t *testing.T) {
	f := live(bson.M{"_id": "x"})
	assert.Equal(t, bson.M{"$ne": true}, f["is_deleted"])

	re := containsFold("a.b")
	assert.Equal(t, `a\.b`, re["$regex"])

	opts := pageOptions(3, 20, bson.D{{Key: "created_at", Value: -1}})
	require.NotNil(t, opts.Skip)
	assert.Equal(t, int64(40), *opts.Skip)
	assert.Equal(t, int64(20), *opts.Limit)

	unbounded := pageOptions(0, 0, nil)
	assert.Nil(t, unbounded.Limit)
}
