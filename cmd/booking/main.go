// Package main is the entry point for the Booking service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bookingapi "github.com/vitaliisemenov/reservation-saga/internal/booking/api"
	"github.com/vitaliisemenov/reservation-saga/internal/booking/gateway"
	"github.com/vitaliisemenov/reservation-saga/internal/booking/saga"
	"github.com/vitaliisemenov/reservation-saga/internal/booking/store"
	"github.com/vitaliisemenov/reservation-saga/internal/config"
	"github.com/vitaliisemenov/reservation-saga/internal/platform/httpmw"
	"github.com/vitaliisemenov/reservation-saga/internal/platform/logger"
	migrations "github.com/vitaliisemenov/reservation-saga/internal/platform/migrate"
	"github.com/vitaliisemenov/reservation-saga/internal/platform/postgres"
	"github.com/vitaliisemenov/reservation-saga/internal/platform/resilience"
)

const serviceName = "booking"

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	log.Info("starting service", "service", serviceName)

	dbConfig := &postgres.PostgresConfig{
		Host: cfg.Database.Host, Port: cfg.Database.Port, Database: cfg.Database.Database,
		User: cfg.Database.User, Password: cfg.Database.Password, SSLMode: cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns, MinConns: cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime, MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod, ConnectTimeout: cfg.Database.ConnectTimeout,
	}
	pool := postgres.NewPostgresPool(dbConfig, log)

	ctx := context.Background()
	if err := pool.Connect(ctx); err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Disconnect(ctx)

	runMigrations(log, dbConfig.ConnectionString())

	storeMetrics := store.NewStoreMetrics()
	var reservations store.ReservationStore = store.NewPostgresReservationStore(pool.Pool(), log, storeMetrics)

	if cached, err := store.NewCachedReservationStore(reservations, 4096); err != nil {
		log.Warn("failed to build idempotency cache, falling back to direct store access", "error", err)
	} else {
		reservations = cached
	}

	retryPolicy := &resilience.RetryPolicy{
		MaxRetries: cfg.Hotel.MaxRetries,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
		Logger:     log,
	}
	hotelClient := gateway.New(gateway.Config{
		BaseURL: cfg.Hotel.BaseURL, Timeout: cfg.Hotel.Timeout,
		RateLimitPerSec: cfg.Hotel.RateLimit, RateLimitBurst: cfg.Hotel.RateBurst,
		RetryPolicy: retryPolicy,
	}, log)

	orchestrator := saga.New(reservations, hotelClient, log, saga.NewMetrics())

	ready := func() error {
		return pool.Health(ctx)
	}

	handler := bookingapi.New(orchestrator, log, ready)
	router := handler.Routes()

	var httpHandler http.Handler = router
	httpHandler = httpmw.MetricsMiddleware(httpHandler)
	httpHandler = httpmw.CorrelationIDMiddleware(httpHandler)
	httpHandler = httpmw.RequestIDMiddleware(httpHandler)
	httpHandler = httpmw.LoggingMiddleware(log)(httpHandler)
	httpHandler = httpmw.RecoveryMiddleware(log)(httpHandler)
	httpHandler = httpmw.CORSMiddleware(httpmw.DefaultCORSConfig())(httpHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("http server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("server exited")
}

func runMigrations(log *slog.Logger, dsn string) {
	os.Setenv("MIGRATION_DSN", dsn)
	os.Setenv("MIGRATION_DIR", "migrations/booking")

	cfg, err := migrations.LoadConfig()
	if err != nil {
		log.Warn("failed to load migration config, skipping migrations", "error", err)
		return
	}
	mgr, err := migrations.NewMigrationManager(cfg)
	if err != nil {
		log.Warn("failed to create migration manager, skipping migrations", "error", err)
		return
	}
	ctx := context.Background()
	if err := mgr.Connect(ctx); err != nil {
		log.Warn("failed to connect migration manager, skipping migrations", "error", err)
		return
	}
	defer mgr.Disconnect(ctx)

	handler := migrations.NewErrorHandler(log, cfg.MaxRetries, cfg.RetryDelay)
	if err := handler.ExecuteWithRetry(ctx, func() error { return mgr.Up(ctx) }); err != nil {
		log.Warn("failed to run migrations, continuing without them", "error", err)
		return
	}
	log.Info("migrations applied")
}
