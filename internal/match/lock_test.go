package match

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) *Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLocker(client, 10*time.Second, 30*time.Second)
}

func TestLockStart(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.LockStart(ctx, 7)
	require.NoError(t, err)

	_, err = locker.LockStart(ctx, 7)
	assert.ErrorIs(t, err, ErrLockHeld)

	// a different owner is unaffected
	other, err := locker.LockStart(ctx, 8)
	require.NoError(t, err)
	assert.NoError(t, other())

	assert.NoError(t, unlock())
	reacquired, err := locker.LockStart(ctx, 7)
	require.NoError(t, err)
	assert.NoError(t, reacquired())
}

func TestLockMatch(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()
	matchID := uuid.New()

	unlock, err := locker.LockMatch(ctx, matchID)
	require.NoError(t, err)

	_, err = locker.LockMatch(ctx, matchID)
	assert.ErrorIs(t, err, ErrLockHeld)

	assert.NoError(t, unlock())
	unlock, err = locker.LockMatch(ctx, matchID)
	require.NoError(t, err)
	assert.NoError(t, unlock())
}

func TestUnlockReleasesOnlyOwnLock(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.LockStart(ctx, 7)
	require.NoError(t, err)
	assert.NoError(t, unlock())

	// a second holder's lock survives the stale unlock
	_, err = locker.LockStart(ctx, 7)
	require.NoError(t, err)
	assert.NoError(t, unlock())
	_, err = locker.LockStart(ctx, 7)
	assert.ErrorIs(t, err, ErrLockHeld)
}
