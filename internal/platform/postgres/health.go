package postgres

import (
	"context"
	"time"
)

// HealthChecker определяет интерфейс для проверки здоровья connection pool
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// DefaultHealthChecker реализует проверку здоровья с помощью простого SQL запроса
type DefaultHealthChecker struct {
	pool *PostgresPool
}

// NewHealthChecker создает новый health checker
func NewHealthChecker(pool *PostgresPool) HealthChecker {
	return &DefaultHealthChecker{pool: pool}
}

// CheckHealth выполняет проверку здоровья database connection
func (h *DefaultHealthChecker) CheckHealth(ctx context.Context) error {
	// Создаем контекст с таймаутом для health check
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Выполняем простой запрос для проверки соединения
	rows, err := h.pool.pool.Query(checkCtx, "SELECT 1")
	if err != nil {
		h.pool.metrics.RecordHealthCheck(false)
		return err
	}
	defer rows.Close()

	// Проверяем что запрос вернул результат
	if !rows.Next() {
		h.pool.metrics.RecordHealthCheck(false)
		return ErrHealthCheckFailed
	}

	var result int
	if err := rows.Scan(&result); err != nil {
		h.pool.metrics.RecordHealthCheck(false)
		return err
	}

	// Проверяем что результат корректный
	if result != 1 {
		h.pool.metrics.RecordHealthCheck(false)
		return ErrHealthCheckFailed
	}

	h.pool.metrics.RecordHealthCheck(true)
	return nil
}

// PeriodicHealthChecker выполняет периодические проверки здоровья
type PeriodicHealthChecker struct {
	checker  HealthChecker
	interval time.Duration
}

// NewPeriodicHealthChecker создает periodic health checker
func NewPeriodicHealthChecker(checker HealthChecker, interval time.Duration) *PeriodicHealthChecker {
	return &PeriodicHealthChecker{
		checker:  checker,
		interval: interval,
	}
}

// Start запускает периодические проверки здоровья, пока ctx не будет отменен
func (p *PeriodicHealthChecker) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = p.checker.CheckHealth(checkCtx)
			cancel()
		}
	}
}
