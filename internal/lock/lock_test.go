package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/enhanced"
)

// runLockSuite exercises the semantics every driver must share.
func runLockSuite(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	ttl := time.Minute

	t.Run("acquire free lock", func(t *testing.T) {
		ok, err := store.TryLock(ctx, "r1", "alice", ttl)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("held lock rejects other owner", func(t *testing.T) {
		ok, err := store.TryLock(ctx, "r1", "bob", ttl)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("holder can re-acquire", func(t *testing.T) {
		ok, err := store.TryLock(ctx, "r1", "alice", ttl)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("status of held lock", func(t *testing.T) {
		status, err := store.Status(ctx, "r1")
		require.NoError(t, err)
		assert.True(t, status.Locked)
		assert.Equal(t, "alice", status.Owner)
		assert.False(t, status.ExpiresAt.IsZero())
	})

	t.Run("unlock by wrong owner", func(t *testing.T) {
		status, err := store.Unlock(ctx, "r1", "bob")
		require.NoError(t, err)
		assert.Equal(t, enhanced.UnlockBelongsToOther, status)
	})

	t.Run("unlock by holder", func(t *testing.T) {
		status, err := store.Unlock(ctx, "r1", "alice")
		require.NoError(t, err)
		assert.Equal(t, enhanced.UnlockSuccess, status)
	})

	t.Run("unlock of free lock", func(t *testing.T) {
		status, err := store.Unlock(ctx, "r1", "alice")
		require.NoError(t, err)
		assert.Equal(t, enhanced.UnlockNotExist, status)
	})

	t.Run("status of free lock", func(t *testing.T) {
		status, err := store.Status(ctx, "r1")
		require.NoError(t, err)
		assert.False(t, status.Locked)
		assert.Empty(t, status.Owner)
	})

	t.Run("renew held lock", func(t *testing.T) {
		ok, err := store.TryLock(ctx, "r2", "carol", ttl)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, store.Renew(ctx, "r2", "carol", 2*ttl))
	})

	t.Run("renew by wrong owner", func(t *testing.T) {
		assert.ErrorIs(t, store.Renew(ctx, "r2", "mallory", ttl), ErrNotHeld)
	})

	t.Run("renew of free lock", func(t *testing.T) {
		assert.ErrorIs(t, store.Renew(ctx, "unheld", "carol", ttl), ErrNotHeld)
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore("default")
	defer store.Close()
	runLockSuite(t, store)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient("default", client)
	defer store.Close()
	runLockSuite(t, store)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore("default")
	defer store.Close()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	ok, err := store.TryLock(ctx, "r", "alice", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Second)

	status, err := store.Status(ctx, "r")
	require.NoError(t, err)
	assert.False(t, status.Locked)

	// Expired lease is free for the taking.
	ok, err = store.TryLock(ctx, "r", "bob", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, store.Renew(ctx, "r", "alice", time.Second), ErrNotHeld)
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient("default", client)
	defer store.Close()
	ctx := context.Background()

	ok, err := store.TryLock(ctx, "r", "alice", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = store.TryLock(ctx, "r", "bob", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
