// Package sweeper runs the periodic task that expires stale HELD locks,
// a correctness backstop for holds whose confirm or release never arrives.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vitaliisemenov/reservation-saga/internal/hotel/store"
)

// Metrics instruments sweep cycles.
type Metrics struct {
	SweptTotal    prometheus.Counter
	CyclesTotal   prometheus.Counter
	CycleDuration prometheus.Histogram
}

// NewMetrics registers the sweeper's Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SweptTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "reservation_saga",
			Subsystem: "sweeper",
			Name:      "locks_expired_total",
			Help:      "Total HELD locks transitioned to EXPIRED by the sweeper.",
		}),
		CyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "reservation_saga",
			Subsystem: "sweeper",
			Name:      "cycles_total",
			Help:      "Total sweep cycles run.",
		}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reservation_saga",
			Subsystem: "sweeper",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a sweep cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Sweeper periodically moves expired HELD locks to EXPIRED.
type Sweeper struct {
	locks    store.LockStore
	logger   *slog.Logger
	metrics  *Metrics
	interval time.Duration
	batch    int
	now      func() time.Time
}

// New builds a Sweeper with the given sweep interval.
func New(locks store.LockStore, logger *slog.Logger, metrics *Metrics, interval time.Duration) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		locks:    locks,
		logger:   logger,
		metrics:  metrics,
		interval: interval,
		batch:    100,
		now:      time.Now,
	}
}

// Run blocks, sweeping on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.CyclesTotal.Inc()
			s.metrics.CycleDuration.Observe(time.Since(start).Seconds())
		}
	}()

	now := s.now()
	expired, err := s.locks.FindExpiredHeld(ctx, now, s.batch)
	if err != nil {
		s.logger.Error("sweep: failed to list expired locks", "error", err)
		return
	}

	for _, lock := range expired {
		transitioned, err := lock.Expire(now)
		if err != nil {
			s.logger.Warn("sweep: lock no longer eligible for expiry", "request_id", lock.RequestID, "error", err)
			continue
		}
		if err := s.locks.Update(ctx, transitioned); err != nil {
			s.logger.Error("sweep: failed to persist expiry", "request_id", lock.RequestID, "error", err)
			continue
		}
		if s.metrics != nil {
			s.metrics.SweptTotal.Inc()
		}
	}

	if len(expired) > 0 {
		s.logger.Info("sweep cycle complete", "expired_count", len(expired))
	}
}
