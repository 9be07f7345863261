package postgres

import (
	"sync/atomic"
	"time"
)

// PoolMetrics содержит метрики для мониторинга connection pool
type PoolMetrics struct {
	// Performance metrics
	ConnectionWaitTime atomic.Int64 // nanoseconds

	// Error tracking
	ConnectionErrors atomic.Int64

	// Health status
	LastHealthCheck     atomic.Int64 // unix timestamp
	HealthCheckFailures atomic.Int64
	IsHealthy           atomic.Bool

	// Additional metrics
	SuccessfulConnections atomic.Int64
	FailedConnections     atomic.Int64
}

// NewPoolMetrics создает новую структуру метрик
func NewPoolMetrics() *PoolMetrics {
	metrics := &PoolMetrics{}
	metrics.LastHealthCheck.Store(time.Now().Unix())
	metrics.IsHealthy.Store(true)
	return metrics
}

// RecordConnectionWait записывает время ожидания соединения
func (m *PoolMetrics) RecordConnectionWait(duration time.Duration) {
	m.ConnectionWaitTime.Add(duration.Nanoseconds())
}

// RecordConnectionError записывает ошибку соединения
func (m *PoolMetrics) RecordConnectionError() {
	m.ConnectionErrors.Add(1)
	m.FailedConnections.Add(1)
}

// RecordSuccessfulConnection записывает успешное соединение
func (m *PoolMetrics) RecordSuccessfulConnection() {
	m.SuccessfulConnections.Add(1)
}

// RecordHealthCheck записывает результат health check
func (m *PoolMetrics) RecordHealthCheck(success bool) {
	m.LastHealthCheck.Store(time.Now().Unix())
	if !success {
		m.HealthCheckFailures.Add(1)
		m.IsHealthy.Store(false)
	} else {
		m.IsHealthy.Store(true)
	}
}
