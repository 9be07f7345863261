// Package main is the entry point for the Hotel service.
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

	"github.com/redis/go-redis/v9"

	"github.com/vitaliisemenov/reservation-saga/internal/config"
	hotelapi "github.com/vitaliisemenov/reservation-saga/internal/hotel/api"
	"github.com/vitaliisemenov/reservation-saga/internal/hotel/engine"
	"github.com/vitaliisemenov/reservation-saga/internal/hotel/roomlock"
	"github.com/vitaliisemenov/reservation-saga/internal/hotel/store"
	"github.com/vitaliisemenov/reservation-saga/internal/hotel/sweeper"
	"github.com/vitaliisemenov/reservation-saga/internal/platform/httpmw"
	"github.com/vitaliisemenov/reservation-saga/internal/platform/logger"
	migrations "github.com/vitaliisemenov/reservation-saga/internal/platform/migrate"
	"github.com/vitaliisemenov/reservation-saga/internal/platform/postgres"
)

const serviceName = "hotel"

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

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout, ReadTimeout: cfg.Redis.ReadTimeout, WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	storeMetrics := store.NewStoreMetrics()
	var locks store.LockStore = store.NewPostgresLockStore(pool.Pool(), log, storeMetrics)
	rooms := store.NewPostgresRoomStore(pool.Pool(), log, storeMetrics)

	if cached, err := store.NewCachedLockStore(locks, 4096); err != nil {
		log.Warn("failed to build idempotency cache, falling back to direct store access", "error", err)
	} else {
		locks = cached
	}

	locker := roomlock.NewRedisLocker(redisClient, &roomlock.LockConfig{
		TTL: cfg.Lock.MutexTTL, MaxRetries: cfg.Lock.MutexMaxRetry,
		RetryInterval: 100 * time.Millisecond, AcquireTimeout: 5 * time.Second, ReleaseTimeout: 2 * time.Second,
		ValuePrefix: "hotel-lock",
	}, log)

	eng := engine.New(locks, rooms, locker, log, engine.NewMetrics(), cfg.Lock.HoldTTL)

	sweep := sweeper.New(locks, log, sweeper.NewMetrics(), cfg.Lock.SweepInterval)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweep.Run(sweepCtx)
	defer stopSweep()

	ready := func() error {
		if err := pool.Health(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	}

	handler := hotelapi.New(eng, log, ready)
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
	os.Setenv("MIGRATION_DIR", "migrations/hotel")

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
