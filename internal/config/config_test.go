package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "reservation_saga", cfg.Database.Database)
	assert.Equal(t, 15*time.Minute, cfg.Lock.HoldTTL)
	assert.Equal(t, 3, cfg.Hotel.MaxRetries)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: 0},
		Database: DatabaseConfig{Host: "localhost"},
		Lock:     LockConfig{HoldTTL: time.Minute, SweepInterval: time.Second},
	}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidate_RejectsMissingHost(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Host: ""},
		Lock:     LockConfig{HoldTTL: time.Minute, SweepInterval: time.Second},
	}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5432, Database: "bookingdb", User: "u", Password: "p", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@db:5432/bookingdb?sslmode=disable", d.DSN())
}
