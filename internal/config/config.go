// Package config loads layered configuration (defaults -> file -> env) for
// either the booking or hotel binary using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full configuration surface shared by both services; each
// binary only reads the sections it needs.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Hotel    HotelConfig    `mapstructure:"hotel"`
	Lock     LockConfig     `mapstructure:"lock"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Database           string        `mapstructure:"database"`
	User               string        `mapstructure:"user"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	MaxConns           int32         `mapstructure:"max_conns"`
	MinConns           int32         `mapstructure:"min_conns"`
	MaxConnLifetime    time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime    time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod  time.Duration `mapstructure:"health_check_period"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig holds the connection settings for the Hotel room mutex.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// HotelConfig configures the Booking service's gateway client to Hotel.
type HotelConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout_ms"`
	MaxRetries int           `mapstructure:"max_retries"`
	RateLimit  float64       `mapstructure:"rate_limit_rps"`
	RateBurst  int           `mapstructure:"rate_burst"`
}

// LockConfig configures the Hotel service's lock lifecycle.
type LockConfig struct {
	HoldTTL        time.Duration `mapstructure:"hold_ttl_minutes"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval_seconds"`
	MutexTTL       time.Duration `mapstructure:"mutex_ttl_seconds"`
	MutexMaxRetry  int           `mapstructure:"mutex_max_retries"`
}

// LogConfig configures the shared slog setup.
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// MetricsConfig carries the metrics.enabled setting. Neither binary reads
// it: Prometheus metrics are registered unconditionally.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from an optional file, then ENV (prefixed
// RESERVATION_), then falls back to defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("reservation")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "reservation_saga")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.health_check_period", time.Minute)
	v.SetDefault("database.connect_timeout", 5*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("hotel.base_url", "http://localhost:8081")
	v.SetDefault("hotel.timeout_ms", 3*time.Second)
	v.SetDefault("hotel.max_retries", 3)
	v.SetDefault("hotel.rate_limit_rps", 50.0)
	v.SetDefault("hotel.rate_burst", 20)

	v.SetDefault("lock.hold_ttl_minutes", 15*time.Minute)
	v.SetDefault("lock.sweep_interval_seconds", 30*time.Second)
	v.SetDefault("lock.mutex_ttl_seconds", 5*time.Second)
	v.SetDefault("lock.mutex_max_retries", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("metrics.enabled", true)
}

// Validate checks invariants that defaults/env parsing cannot enforce.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Lock.HoldTTL <= 0 {
		return fmt.Errorf("lock.hold_ttl_minutes must be positive")
	}
	if c.Lock.SweepInterval <= 0 {
		return fmt.Errorf("lock.sweep_interval_seconds must be positive")
	}
	return nil
}

// DSN renders the Postgres connection string for pgxpool.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}
