// Package service caches the health dataset and renders it for the dashboard
// and for the chat system prompt.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"folio/internal/garmin/models"
	"folio/internal/platform/metrics"
	dErrors "folio/pkg/domain-errors"
)

const (
	DefaultTTL         = 10 * time.Minute
	DefaultLoadTimeout = 5 * time.Second

	statusMessage = "Garmin Health API is running. Use POST to query data."
)

// Source loads the full dataset.
type Source interface {
	Load(ctx context.Context) (*models.Dataset, error)
	Name() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithLoadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

// WithClock overrides time.Now for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type snapshot struct {
	data     *models.Dataset
	prompt   string
	loadedAt time.Time
}

// Service serves the dataset from a TTL cache. Concurrent misses share one
// load, and a failed refresh keeps serving the previous dataset.
type Service struct {
	source      Source
	ttl         time.Duration
	loadTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	mu    sync.RWMutex
	cache *snapshot
	group singleflight.Group
}

func New(source Source, opts ...Option) *Service {
	s := &Service{
		source:      source,
		ttl:         DefaultTTL,
		loadTimeout: DefaultLoadTimeout,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary builds the dashboard payload.
func (s *Service) Summary(ctx context.Context) (*models.Summary, error) {
	snap, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	d := snap.data
	return &models.Summary{
		VO2Max:          d.VO2Max,
		VO2Trend:        d.Trend(),
		Activities:      d.Activities,
		SleepStats:      d.Sleep,
		RacePredictions: d.RacePredictions,
		BestPrediction:  d.BestPrediction(),
		HeartRateZones:  d.HeartRateZones,
		Zones:           d.HeartRateZones.Zones(),
		TotalActivities: d.TotalActivities,
		DateRange:       d.DateRange,
	}, nil
}

// PromptContext returns the plain-text block embedded in the chat system
// prompt.
func (s *Service) PromptContext(ctx context.Context) (string, error) {
	snap, err := s.get(ctx)
	if err != nil {
		return "", err
	}
	return snap.prompt, nil
}

func (s *Service) Status(ctx context.Context) (*models.Status, error) {
	snap, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Status{
		Status:          "ok",
		DataRange:       snap.data.DateRange.Start + " to " + snap.data.DateRange.End,
		TotalActivities: snap.data.TotalActivities,
		Message:         statusMessage,
	}, nil
}

// Invalidate drops the cached dataset; the next call reloads.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}

func (s *Service) fresh() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cache != nil && s.now().Sub(s.cache.loadedAt) < s.ttl {
		return s.cache
	}
	return nil
}

func (s *Service) get(ctx context.Context) (*snapshot, error) {
	if snap := s.fresh(); snap != nil {
		return snap, nil
	}

	v, err, _ := s.group.Do("dataset", func() (any, error) {
		if snap := s.fresh(); snap != nil {
			return snap, nil
		}
		return s.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*snapshot), nil
}

// load runs detached from the caller so one cancelled request does not fail
// every request waiting on the same flight.
func (s *Service) load(ctx context.Context) (*snapshot, error) {
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
	defer cancel()

	start := s.now()
	data, err := s.source.Load(loadCtx)
	if s.metrics != nil {
		s.metrics.RecordHealthDataLoad(s.source.Name(), err)
	}
	if err != nil {
		s.mu.RLock()
		stale := s.cache
		s.mu.RUnlock()
		if stale != nil {
			s.logger.WarnContext(ctx, "health data refresh failed, serving cached copy",
				"source", s.source.Name(),
				"age", s.now().Sub(stale.loadedAt).String(),
				"error", err,
			)
			return stale, nil
		}
		s.logger.ErrorContext(ctx, "health data load failed", "source", s.source.Name(), "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "Health data is unavailable")
	}

	snap := &snapshot{data: data, prompt: FormatPrompt(data), loadedAt: s.now()}
	s.mu.Lock()
	s.cache = snap
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "health data loaded",
		"source", s.source.Name(),
		"activities", data.TotalActivities,
		"duration", s.now().Sub(start).String(),
	)
	return snap, nil
}
