package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client), mr
}

func session(id, userID string) *domain.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Session{ID: id, UserID: userID, Username: userID, IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
}

func TestSessionStore_SaveFind(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, session("s1", "u1"), time.Hour))

	got, err := store.Find(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.ExpiresAt.After(got.IssuedAt))
}

func TestSessionStore_Expiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, session("s1", "u1"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := store.Find(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionStore_Delete(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, session("s1", "u1"), time.Hour))
	require.NoError(t, store.Delete(ctx, "s1"))

	_, err := store.Find(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	members, _ := mr.Members(userKey("u1"))
	assert.NotContains(t, members, "s1")

	assert.NoError(t, store.Delete(ctx, "s1"), "deleting twice is fine")
}

func TestSessionStore_DeleteUser(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, session("a", "u1"), time.Hour))
	require.NoError(t, store.Save(ctx, session("b", "u1"), time.Hour))
	require.NoError(t, store.Save(ctx, session("c", "u2"), time.Hour))

	require.NoError(t, store.DeleteUser(ctx, "u1"))

	for _, id := range []string{"a", "b"} {
		_, err := store.Find(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	}
	_, err := store.Find(ctx, "c")
	assert.NoError(t, err)
}

func TestSessionStore_RejectsNonPositiveTTL(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Error(t, store.Save(context.Background(), session("s", "u"), 0))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	addr := mr.Addr()
	client, err := Connect(context.Background(), Config{Addr: addr})
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = Connect(context.Background(), Config{Addr: addr, Timeout: 200 * time.Millisecond})
	assert.Error(t, err)
}
