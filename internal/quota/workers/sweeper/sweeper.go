// Package sweeper purges expired counter records from stores that keep them
// past their window.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"folio/internal/quota/metrics"
	"folio/internal/quota/ports"
)

// Result reports one sweep run.
type Result struct {
	Removed  int
	Duration time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock replaces time.Now as the instant records are checked against.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type Service struct {
	store    ports.Sweeper
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(store ports.Sweeper, opts ...Option) *Service {
	service := &Service{
		store:    store,
		logger:   slog.Default(),
		interval: 6 * time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Interval is the period between runs.
func (s *Service) Interval() time.Duration {
	return s.interval
}

// Start sweeps on every tick until ctx is done. A failed run is logged and
// the loop continues.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.Error("quota_sweep_failed",
					"error", err,
					"duration_ms", res.Duration.Milliseconds(),
				)
				continue
			}
			s.logger.Debug("quota_sweep_completed",
				"removed", res.Removed,
				"duration_ms", res.Duration.Milliseconds(),
			)

		case <-ctx.Done():
			s.logger.Info("quota sweeper stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce performs a single sweep and records its metrics. The returned
// Result is never nil.
func (s *Service) RunOnce(ctx context.Context) (*Result, error) {
	start := time.Now()
	removed, err := s.store.Sweep(ctx, s.now())
	res := &Result{Removed: removed, Duration: time.Since(start)}

	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordSweep(status, removed, res.Duration.Seconds())
	}
	return res, err
}
