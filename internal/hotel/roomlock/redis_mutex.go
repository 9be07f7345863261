// Package roomlock provides a Redis-based mutex that serializes hold
// operations against the same room so that two overlapping holds can
// never both observe a clean interval table.
package roomlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoomLockKey returns the Redis key that serializes access to a single room.
func RoomLockKey(roomID string) string {
	return "roomlock:" + roomID
}

// DistributedLock представляет распределенную блокировку на базе Redis
type DistributedLock struct {
	redis    *redis.Client
	key      string
	value    string
	ttl      time.Duration
	logger   *slog.Logger
	acquired bool
}

// LockConfig содержит конфигурацию для distributed lock
type LockConfig struct {
	// TTL для автоматического освобождения блокировки
	TTL time.Duration `env:"LOCK_TTL" default:"30s"`

	// Retry настройки
	MaxRetries    int           `env:"LOCK_MAX_RETRIES" default:"3"`
	RetryInterval time.Duration `env:"LOCK_RETRY_INTERVAL" default:"100ms"`

	// Timeout для операций
	AcquireTimeout time.Duration `env:"LOCK_ACQUIRE_TIMEOUT" default:"5s"`
	ReleaseTimeout time.Duration `env:"LOCK_RELEASE_TIMEOUT" default:"2s"`

	// Настройки для генерации уникального значения
	ValuePrefix string `env:"LOCK_VALUE_PREFIX" default:"lock"`
}

// NewDistributedLock создает новый distributed lock
func NewDistributedLock(redis *redis.Client, key string, config *LockConfig, logger *slog.Logger) *DistributedLock {
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

	if logger == nil {
		logger = slog.Default()
	}

	// Генерируем уникальное значение для блокировки
	value := generateLockValue(config.ValuePrefix)

	return &DistributedLock{
		redis:  redis,
		key:    key,
		value:  value,
		ttl:    config.TTL,
		logger: logger,
	}
}

// generateLockValue генерирует уникальное значение для блокировки
func generateLockValue(prefix string) string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback к timestamp + random
		return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano(), time.Now().Unix())
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(bytes))
}

// AcquireWithRetry пытается получить блокировку с повторными попытками
func (l *DistributedLock) AcquireWithRetry(ctx context.Context, maxRetries int) (bool, error) {
	if maxRetries < 0 {
		maxRetries = 0 // 0 = одна попытка без повторов
	}

	l.logger.Debug("Attempting to acquire lock", "key", l.key, "value", l.value, "ttl", l.ttl)

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Создаем контекст с таймаутом для операции
		acquireCtx, cancel := context.WithTimeout(ctx, l.ttl)
		defer cancel()

		// Используем SET NX для атомарного получения блокировки
		result, err := l.redis.SetNX(acquireCtx, l.key, l.value, l.ttl).Result()
		if err != nil {
			l.logger.Error("Failed to acquire lock", "key", l.key, "attempt", attempt+1, "error", err)
			if attempt == maxRetries {
				return false, fmt.Errorf("failed to acquire lock after %d attempts: %w", maxRetries+1, err)
			}
			time.Sleep(l.retryInterval(attempt))
			continue
		}

		if result {
			l.acquired = true
			l.logger.Info("Lock acquired successfully", "key", l.key, "value", l.value, "ttl", l.ttl)
			return true, nil
		}

		l.logger.Debug("Lock already held by another process", "key", l.key, "attempt", attempt+1)
		if attempt == maxRetries {
			return false, nil
		}

		time.Sleep(l.retryInterval(attempt))
	}

	return false, nil
}

// Release освобождает блокировку
func (l *DistributedLock) Release(ctx context.Context) error {
	if !l.acquired {
		l.logger.Warn("Attempting to release lock that was not acquired", "key", l.key)
		return nil
	}

	l.logger.Debug("Releasing lock", "key", l.key, "value", l.value)

	// Lua скрипт для атомарного освобождения блокировки
	// Проверяем, что значение совпадает (защита от освобождения чужой блокировки)
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`

	// Создаем контекст с таймаутом для операции
	releaseCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	result, err := l.redis.Eval(releaseCtx, script, []string{l.key}, l.value).Result()
	if err != nil {
		l.logger.Error("Failed to release lock", "key", l.key, "error", err)
		return fmt.Errorf("failed to release lock: %w", err)
	}

	// Проверяем результат
	if result.(int64) == 1 {
		l.acquired = false
		l.logger.Info("Lock released successfully", "key", l.key)
		return nil
	}

	l.logger.Warn("Lock was not released (possibly already expired or held by another process)", "key", l.key)
	return nil
}

// retryInterval вычисляет интервал между повторными попытками
func (l *DistributedLock) retryInterval(attempt int) time.Duration {
	// Линейный backoff с jitter
	baseInterval := 100 * time.Millisecond
	interval := time.Duration(attempt+1) * baseInterval

	// Добавляем случайный jitter (±25%)
	jitter := time.Duration(float64(interval) * 0.25 * (2*float64(time.Now().UnixNano()%1000)/1000 - 1))
	return interval + jitter
}

