package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type stubRevoker struct {
	revoked []string
}

func (r *stubRevoker) RevokeUser(_ context.Context, userID string) error {
	r.revoked = append(r.revoked, userID)
	return nil
}

func newUserSvc(store *memStore) (ports.UserService, *stubRevoker, *stubSink) {
	revoker := &stubRevoker{}
	sink := &stubSink{}
	return NewUserService(store.repos(), revoker, sink, zerolog.Nop()), revoker, sink
}

func TestUserService_Create_DefaultRoles(t *testing.T) {
	store := newMemStore()
	store.addRole("MEMBER").IsDefault = true
	store.addRole("ADMIN")
	svc, _, sink := newUserSvc(store)

	user, err := svc.Create(context.Background(), ports.CreateUserInput{Username: "alice", Password: "pw", Actor: testActor})
	require.NoError(t, err)
	assert.NotEqual(t, "pw", user.PasswordHash)

	roles, err := svc.Roles(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "MEMBER", roles[0].Role.Key)
	assert.Equal(t, domain.ActionUserCreated, sink.last().Action)
}

func TestUserService_Create_UnknownRole(t *testing.T) {
	svc, _, _ := newUserSvc(newMemStore())

	_, err := svc.Create(context.Background(), ports.CreateUserInput{Username: "bob", Password: "pw", RoleKeys: []string{"NOPE"}})
	assert.ErrorIs(t, err, domain.ErrRoleNotFound)
}

func TestUserService_Create_RoleWriteFailureLeavesNoUser(t *testing.T) {
	store := newMemStore()
	store.addRole("ADMIN")
	store.userRolesErr = errors.New("write conflict")
	svc, _, sink := newUserSvc(store)

	_, err := svc.Create(context.Background(), ports.CreateUserInput{Username: "bob", Password: "pw", RoleKeys: []string{"ADMIN"}, Actor: testActor})
	require.Error(t, err)
	assert.Equal(t, domain.AuditFailure, sink.last().Result)

	_, err = store.repos().Users.FindByUsername(context.Background(), "bob")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Empty(t, store.userRoles)
}

func TestUserService_ReplaceRoles(t *testing.T) {
	store := newMemStore()
	store.addUser("u1")
	store.addRole("A")
	store.addRole("B")
	store.addRole("C")
	store.assign("u1", "A")
	svc, _, sink := newUserSvc(store)

	views, err := svc.ReplaceRoles(context.Background(), ports.ReplaceUserRolesInput{UserID: "u1", RoleKeys: []string{"C", "B"}, Actor: testActor})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, viewKeys(views))

	logged := sink.last()
	assert.Equal(t, domain.ActionUserRolesChanged, logged.Action)
	assert.Equal(t, []string{"A"}, logged.Before["keys"])
	assert.Equal(t, []string{"B", "C"}, logged.After["keys"])
}

func TestUserService_AssignRole_WithExpiry(t *testing.T) {
	store := newMemStore()
	store.addUser("u1")
	store.addRole("TEMP")
	svc, _, _ := newUserSvc(store)

	past := time.Now().Add(-time.Minute)
	_, err := svc.AssignRole(context.Background(), ports.AssignUserRoleInput{UserID: "u1", RoleKey: "TEMP", ExpiresAt: &past})
	assert.ErrorIs(t, err, domain.ErrValidation)

	future := time.Now().Add(time.Hour)
	views, err := svc.AssignRole(context.Background(), ports.AssignUserRoleInput{UserID: "u1", RoleKey: "TEMP", ExpiresAt: &future})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].Expired)
	require.NotNil(t, views[0].ExpiresAt)

	require.NoError(t, svc.UnassignRole(context.Background(), "u1", "TEMP", testActor))
	views, err = svc.Roles(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestUserService_ChangeStatus_RevokesSessions(t *testing.T) {
	store := newMemStore()
	store.addUser("u1")
	svc, revoker, _ := newUserSvc(store)

	user, err := svc.ChangeStatus(context.Background(), ports.ChangeUserStatusInput{ID: "u1", Status: domain.UserBanned})
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.Equal(t, []string{"u1"}, revoker.revoked)

	user, err = svc.ChangeStatus(context.Background(), ports.ChangeUserStatusInput{ID: "u1", Status: domain.UserActive})
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.Len(t, revoker.revoked, 1)

	_, err = svc.ChangeStatus(context.Background(), ports.ChangeUserStatusInput{ID: "u1", Status: "WHATEVER"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUserService_Delete(t *testing.T) {
	store := newMemStore()
	store.addUser("u1")
	store.addRole("A")
	store.assign("u1", "A")
	svc, revoker, sink := newUserSvc(store)

	require.NoError(t, svc.Delete(context.Background(), "u1", testActor))
	assert.True(t, store.users["u1"].IsDeleted)
	assert.Empty(t, store.userRoles)
	assert.Equal(t, []string{"u1"}, revoker.revoked)
	assert.Equal(t, domain.ActionUserDeleted, sink.last().Action)

	_, err := svc.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserService_List(t *testing.T) {
	store := newMemStore()
	store.addUser("alice")
	store.addUser("bob").Status = domain.UserSuspended
	store.addUser("carol").IsDeleted = true
	svc, _, _ := newUserSvc(store)

	page, err := svc.List(context.Background(), ports.UserFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = svc.List(context.Background(), ports.UserFilter{Status: domain.UserSuspended})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "bob", page.Items[0].Username)
}

func TestUserService_BatchRoles(t *testing.T) {
	store := newMemStore()
	store.addUser("u1")
	store.addUser("u2")
	store.addRole("ADMIN")
	store.addRole("VIEWER")
	store.assign("u1", "VIEWER", "ADMIN")
	store.assign("u2", "VIEWER")
	svc, _, _ := newUserSvc(store)

	out, err := svc.BatchRoles(context.Background(), []string{"u1", "u2", "ghost", "u1"})
	require.NoError(t, err)
	require.Len(t, out, 3)

	require.Len(t, out["u1"], 2)
	assert.Equal(t, "ADMIN", out["u1"][0].Role.Key)
	assert.Equal(t, "VIEWER", out["u1"][1].Role.Key)
	require.Len(t, out["u2"], 1)
	assert.NotNil(t, out["ghost"])
	assert.Empty(t, out["ghost"])
}

func TestUserService_BatchRoles_Bounds(t *testing.T) {
	svc, _, _ := newUserSvc(newMemStore())

	_, err := svc.BatchRoles(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	ids := make([]string, maxBatchUsers+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%d", i)
	}
	_, err = svc.BatchRoles(context.Background(), ids)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
