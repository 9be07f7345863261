package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPool реализует высокопроизводительный PostgreSQL connection pool
type PostgresPool struct {
	pool     *pgxpool.Pool
	config   *PostgresConfig
	logger   *slog.Logger
	metrics  *PoolMetrics
	health   HealthChecker
	isClosed atomic.Bool
}

// NewPostgresPool создает новый PostgreSQL connection pool
func NewPostgresPool(config *PostgresConfig, logger *slog.Logger) *PostgresPool {
	if logger == nil {
		logger = slog.Default()
	}

	pool := &PostgresPool{
		config:   config,
		logger:   logger,
		metrics:  NewPoolMetrics(),
		isClosed: atomic.Bool{},
	}

	// Создаем health checker
	pool.health = NewHealthChecker(pool)

	return pool
}

// Connect устанавливает соединение с базой данных
func (p *PostgresPool) Connect(ctx context.Context) error {
	if p.isClosed.Load() {
		return ErrConnectionClosed
	}

	// Проверяем конфигурацию
	if err := p.config.Validate(); err != nil {
		p.logger.Error("Invalid database configuration", "error", err)
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	p.logger.Info("Connecting to PostgreSQL",
		"host", p.config.Host,
		"port", p.config.Port,
		"database", p.config.Database,
		"user", p.config.User,
		"ssl_mode", p.config.SSLMode,
		"max_conns", p.config.MaxConns,
		"min_conns", p.config.MinConns)

	// Создаем конфигурацию pgxpool
	poolConfig, err := pgxpool.ParseConfig(p.config.DSN())
	if err != nil {
		p.logger.Error("Failed to parse database DSN", "error", err)
		p.metrics.RecordConnectionError()
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	// Настраиваем параметры pool
	poolConfig.MaxConns = p.config.MaxConns
	poolConfig.MinConns = p.config.MinConns
	poolConfig.MaxConnLifetime = p.config.MaxConnLifetime
	poolConfig.MaxConnIdleTime = p.config.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = p.config.HealthCheckPeriod

	// Устанавливаем таймаут подключения
	connectCtx, cancel := context.WithTimeout(ctx, p.config.ConnectTimeout)
	defer cancel()

	start := time.Now()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		p.logger.Error("Failed to create connection pool", "error", err)
		p.metrics.RecordConnectionError()
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	// Тестируем соединение
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		p.logger.Error("Failed to ping database", "error", err)
		p.metrics.RecordConnectionError()
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	p.pool = pool
	connectionTime := time.Since(start)
	p.metrics.RecordConnectionWait(connectionTime)
	p.metrics.RecordSuccessfulConnection()

	p.logger.Info("Successfully connected to PostgreSQL",
		"connection_time", connectionTime,
		"max_conns", p.config.MaxConns,
		"min_conns", p.config.MinConns)

	// Запускаем периодические health checks
	if healthChecker, ok := p.health.(*DefaultHealthChecker); ok {
		periodicChecker := NewPeriodicHealthChecker(healthChecker, p.config.HealthCheckPeriod)
		go periodicChecker.Start(ctx)
	}

	return nil
}

// Disconnect закрывает соединение с базой данных
func (p *PostgresPool) Disconnect(ctx context.Context) error {
	if p.pool == nil {
		return nil
	}

	if p.isClosed.Load() {
		return ErrConnectionClosed
	}

	p.logger.Info("Disconnecting from PostgreSQL")

	p.pool.Close()

	p.isClosed.Store(true)
	p.logger.Info("Successfully disconnected from PostgreSQL")

	return nil
}

// Health выполняет проверку здоровья базы данных
func (p *PostgresPool) Health(ctx context.Context) error {
	if p.isClosed.Load() {
		return ErrConnectionClosed
	}

	if p.pool == nil {
		return ErrNotConnected
	}

	return p.health.CheckHealth(ctx)
}

// Pool returns the underlying pgxpool.Pool for advanced operations
// This is useful when you need direct access to pgxpool features
func (p *PostgresPool) Pool() *pgxpool.Pool {
	return p.pool
}
