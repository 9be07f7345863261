package roomlock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker serializes the conflict-check-then-insert critical section for a
// single room, so two concurrent conflicting holds cannot both succeed.
type Locker interface {
	WithRoomLock(ctx context.Context, roomID string, fn func(ctx context.Context) error) error
}

// RedisLocker implements Locker on top of the SETNX+Lua DistributedLock.
type RedisLocker struct {
	redis  *redis.Client
	config *LockConfig
	logger *slog.Logger
}

// NewRedisLocker builds a RedisLocker.
func NewRedisLocker(client *redis.Client, config *LockConfig, logger *slog.Logger) *RedisLocker {
	if logger == nil {
		logger = slog.Default()
	}
	if config == nil {
		config = &LockConfig{
			TTL:            30 * time.Second,
			MaxRetries:     3,
			RetryInterval:  100 * time.Millisecond,
			AcquireTimeout: 5 * time.Second,
			ReleaseTimeout: 2 * time.Second,
			ValuePrefix:    "lock",
		}
	}
	return &RedisLocker{redis: client, config: config, logger: logger}
}

// WithRoomLock acquires the per-room mutex, runs fn, then releases the
// mutex regardless of fn's outcome.
func (l *RedisLocker) WithRoomLock(ctx context.Context, roomID string, fn func(ctx context.Context) error) error {
	lock := NewDistributedLock(l.redis, RoomLockKey(roomID), l.config, l.logger)

	acquired, err := lock.AcquireWithRetry(ctx, l.config.MaxRetries)
	if err != nil {
		return fmt.Errorf("acquire room lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("room %s is busy, try again", roomID)
	}
	defer func() {
		releaseCtx := context.WithoutCancel(ctx)
		if err := lock.Release(releaseCtx); err != nil {
			l.logger.Warn("failed to release room lock", "room_id", roomID, "error", err)
		}
	}()

	return fn(ctx)
}
