package match

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes a lock only if we still own it.
const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// ErrLockHeld is returned when another request holds the lock.
var ErrLockHeld = fmt.Errorf("lock already held")

// Locker serializes match mutations through Redis. Start locks are keyed by
// owner (first writer wins on concurrent starts); submit locks by match.
type Locker struct {
	redis     *redis.Client
	startTTL  time.Duration
	submitTTL time.Duration
}

// NewLocker creates a Redis-backed locker.
func NewLocker(client *redis.Client, startTTL, submitTTL time.Duration) *Locker {
	if startTTL <= 0 {
		startTTL = 10 * time.Second
	}
	if submitTTL <= 0 {
		submitTTL = 30 * time.Second
	}
	return &Locker{redis: client, startTTL: startTTL, submitTTL: submitTTL}
}

// LockStart acquires the per-owner creation lock.
func (l *Locker) LockStart(ctx context.Context, ownerID int64) (func() error, error) {
	key := fmt.Sprintf("match:start:%d", ownerID)
	return l.acquire(ctx, key, l.startTTL)
}

// LockMatch acquires the per-match mutation lock shared by poll and submit.
func (l *Locker) LockMatch(ctx context.Context, matchID uuid.UUID) (func() error, error) {
	key := fmt.Sprintf("match:lock:%s", matchID.String())
	return l.acquire(ctx, key, l.submitTTL)
}

func (l *Locker) acquire(ctx context.Context, key string, ttl time.Duration) (func() error, error) {
	lockValue := uuid.New().String()

	acquired, err := l.redis.SetNX(ctx, key, lockValue, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil, ErrLockHeld
	}

	unlock := func() error {
		return l.redis.Eval(ctx, unlockScript, []string{key}, lockValue).Err()
	}
	return unlock, nil
}
