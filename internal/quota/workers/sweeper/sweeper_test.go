package sweeper

// Justification: the sweep bounds the memory held by the in-process counter
// table. These tests drive it with a fixed clock instead of waiting for
// windows to pass.

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"folio/internal/quota/metrics"
	"folio/internal/quota/store/memory"
)

type failingSweeper struct{}

func (failingSweeper) Sweep(context.Context, time.Time) (int, error) {
	return 0, errors.New("store closed")
}

type SweeperSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	metrics *metrics.Metrics
	now     time.Time
	logger  *slog.Logger
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

func (s *SweeperSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	s.logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func (s *SweeperSuite) seed(key string, createdAt time.Time, window time.Duration) {
	_, _, err := s.store.Admit(s.ctx, key, 10, createdAt, createdAt.Add(window))
	s.Require().NoError(err)
}

func (s *SweeperSuite) TestRunOnceRemovesOnlyExpired() {
	s.seed("quota:chat:old", s.now.Add(-2*time.Hour), time.Hour)
	s.seed("quota:chat:edge", s.now.Add(-time.Hour), time.Hour)
	s.seed("quota:chat:live", s.now.Add(-10*time.Minute), time.Hour)

	svc := New(s.store, WithMetrics(s.metrics), WithClock(func() time.Time { return s.now }))
	res, err := svc.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, res.Removed)
	s.Equal(1, s.store.Len())

	s.Equal(1.0, testutil.ToFloat64(s.metrics.SweepRunsTotal.WithLabelValues("success")))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.SweepRemovedTotal))
}

func (s *SweeperSuite) TestRunOnceReportsStoreError() {
	svc := New(failingSweeper{}, WithMetrics(s.metrics))
	res, err := svc.RunOnce(s.ctx)
	s.Error(err)
	s.NotNil(res)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SweepRunsTotal.WithLabelValues("error")))
}

func (s *SweeperSuite) TestStartSweepsUntilCancelled() {
	s.seed("quota:chat:old", s.now.Add(-2*time.Hour), time.Hour)
	svc := New(s.store,
		WithInterval(5*time.Millisecond),
		WithLogger(s.logger),
		WithClock(func() time.Time { return s.now }),
	)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	s.Eventually(func() bool { return s.store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	s.ErrorIs(<-done, context.Canceled)
}

func (s *SweeperSuite) TestDefaults() {
	svc := New(s.store, WithInterval(0), WithLogger(nil))
	s.Equal(6*time.Minute, svc.Interval())
}
