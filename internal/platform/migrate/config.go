package migrations

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// LoadConfig загружает конфигурацию системы миграций из переменных окружения
func LoadConfig() (*MigrationConfig, error) {
	config := &MigrationConfig{}

	// Database configuration
	config.Driver = getEnvString("MIGRATION_DRIVER", "pgx")
	config.DSN = getEnvString("MIGRATION_DSN", "")
	config.Dialect = getEnvString("MIGRATION_DIALECT", "postgres")

	// Migration settings
	config.Dir = getEnvString("MIGRATION_DIR", "migrations")
	config.Table = getEnvString("MIGRATION_TABLE", "goose_db_version")
	config.Schema = getEnvString("MIGRATION_SCHEMA", "public")

	// Safety settings
	config.Timeout = getEnvDuration("MIGRATION_TIMEOUT", 5*time.Minute)
	config.MaxRetries = getEnvInt("MIGRATION_MAX_RETRIES", 3)
	config.RetryDelay = getEnvDuration("MIGRATION_RETRY_DELAY", 5*time.Second)

	// Development settings
	config.Verbose = getEnvBool("MIGRATION_VERBOSE", false)
	config.DryRun = getEnvBool("MIGRATION_DRY_RUN", false)
	config.AllowOutOfOrder = getEnvBool("MIGRATION_ALLOW_OUT_OF_ORDER", false)

	// Safety settings
	config.NoVersioning = getEnvBool("MIGRATION_NO_VERSIONING", false)
	config.LockTimeout = getEnvDuration("MIGRATION_LOCK_TIMEOUT", 10*time.Second)

	// Monitoring
	config.EnableMetrics = getEnvBool("MIGRATION_METRICS", true)
	config.EnableTracing = getEnvBool("MIGRATION_TRACING", false)

	// Валидация конфигурации
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid migration configuration: %w", err)
	}

	return config, nil
}

// Validate проверяет корректность конфигурации
func (c *MigrationConfig) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("database driver cannot be empty")
	}

	if c.DSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}

	if c.Dir == "" {
		return fmt.Errorf("migration directory cannot be empty")
	}

	if c.Table == "" {
		return fmt.Errorf("migration table name cannot be empty")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive")
	}

	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock timeout must be positive")
	}

	return nil
}

// getEnvString получает строковую переменную окружения с значением по умолчанию
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool получает булеву переменную окружения с значением по умолчанию
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения с значением по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения типа duration с значением по умолчанию
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

