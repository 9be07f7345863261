package postgres

import "errors"

// Common errors
var (
	// ErrNotConnected indicates that the pool is not connected to the database
	ErrNotConnected = errors.New("database pool is not connected")

	// ErrConnectionFailed indicates that connection to database failed
	ErrConnectionFailed = errors.New("failed to connect to database")

	// ErrConnectionClosed indicates that the connection pool is closed
	ErrConnectionClosed = errors.New("database connection pool is closed")

	// ErrHealthCheckFailed indicates that health check failed
	ErrHealthCheckFailed = errors.New("database health check failed")

	// ErrInvalidConfig indicates that configuration is invalid
	ErrInvalidConfig = errors.New("invalid database configuration")
)
