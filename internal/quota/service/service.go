// Package service implements the quota gate: per-client fixed-window
// counting with allow/deny decisions.
//
// Usage:
//
//	gate, _ := service.New(map[models.Backend]ports.CounterStore{
//	    models.BackendMemory: memory.New(),
//	})
//	decision, _ := gate.Evaluate(ctx, clientIP, policy, now)
//	if !decision.Allowed() {
//	    // 429
//	}
//
// The gate never returns an error for a store failure on a fail-open
// policy; it admits with a conservative remaining count and marks the
// decision Degraded.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"folio/internal/platform/privacy"
	"folio/internal/quota/metrics"
	"folio/internal/quota/models"
	"folio/internal/quota/observability"
	"folio/internal/quota/ports"
	dErrors "folio/pkg/domain-errors"
	"folio/pkg/platform/circuit"
	"folio/pkg/requestcontext"
)

// Service is safe for concurrent use. It owns no counter state itself; the
// stores it is given do.
type Service struct {
	stores  map[models.Backend]ports.CounterStore
	logger  *slog.Logger
	metrics *metrics.Metrics
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

// New builds a gate over the given backends. A policy naming a backend
// that is not in stores fails at evaluation time with CodeInternal.
func New(stores map[models.Backend]ports.CounterStore, opts ...Option) (*Service, error) {
	if len(stores) == 0 {
		return nil, errors.New("at least one counter store is required")
	}
	for backend, store := range stores {
		if store == nil {
			return nil, errors.New("counter store for backend " + string(backend) + " is nil")
		}
	}

	svc := &Service{
		stores: stores,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Evaluate decides whether clientID may make one more request under policy
// at now. An Admitted decision has already consumed the slot; a Denied one
// has changed nothing.
func (s *Service) Evaluate(ctx context.Context, clientID string, policy models.Policy, now time.Time) (*models.Decision, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	store, ok := s.stores[policy.Backend]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "no counter store for backend "+string(policy.Backend))
	}
	if clientID == "" {
		clientID = requestcontext.UnknownClient
	}

	window := policy.WindowAt(now)
	key := models.CounterKey(policy.ID, clientID, window)

	start := time.Now()
	decision, err := withTimeout(ctx, policy.StoreTimeout, func(ctx context.Context) (*models.Decision, error) {
		return s.decide(ctx, store, key, policy, now, window)
	})
	if s.metrics != nil {
		s.metrics.ObserveStoreLatency(string(policy.ID), time.Since(start).Seconds())
	}
	if err != nil {
		return s.failOpen(ctx, clientID, policy, now, window, err)
	}

	if s.metrics != nil {
		s.metrics.RecordDecision(string(policy.ID), string(decision.Outcome))
	}
	if !decision.Allowed() {
		observability.LogAudit(ctx, s.logger, slog.LevelInfo, "quota_denied",
			"policy", policy.ID,
			"client", privacy.AnonymizeIP(clientID),
			"limit", policy.Limit,
			"reset_in_ms", decision.ResetIn.Milliseconds(),
		)
	}
	return decision, nil
}

// Peek reports a client's standing without touching the counter.
func (s *Service) Peek(ctx context.Context, clientID string, policy models.Policy, now time.Time) (*models.Usage, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	store, ok := s.stores[policy.Backend]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "no counter store for backend "+string(policy.Backend))
	}
	if clientID == "" {
		clientID = requestcontext.UnknownClient
	}

	window := policy.WindowAt(now)
	key := models.CounterKey(policy.ID, clientID, window)
	rec, err := withTimeout(ctx, policy.StoreTimeout, func(ctx context.Context) (*models.CounterRecord, error) {
		return store.Get(ctx, key, now)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "quota store unavailable")
	}

	usage := &models.Usage{
		Policy:    policy.ID,
		Client:    clientID,
		Key:       key,
		Limit:     policy.Limit,
		Remaining: policy.Limit,
		State:     models.StateOf(rec, policy.Limit, now),
		Backend:   policy.Backend,
	}
	if rec != nil {
		usage.Count = rec.Count
		usage.Remaining = max(policy.Limit-rec.Count, 0)
		if !rec.WindowResetAt.IsZero() {
			resetAt := rec.WindowResetAt
			usage.ResetAt = &resetAt
		}
	}
	return usage, nil
}

func (s *Service) decide(ctx context.Context, store ports.CounterStore, key string, policy models.Policy, now time.Time, window models.Window) (*models.Decision, error) {
	if admitter, ok := store.(ports.Admitter); ok {
		rec, admitted, err := admitter.Admit(ctx, key, policy.Limit, now, window.ResetAt)
		if err != nil {
			return nil, err
		}
		return shape(policy, rec, admitted, now, window), nil
	}

	// Get, compare, increment. Two requests can both pass the compare and
	// both increment, so the limit can be overshot by the number of
	// concurrent callers. Only stores without Admit take this path.
	rec, err := store.Get(ctx, key, now)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.Count >= policy.Limit {
		return shape(policy, rec, false, now, window), nil
	}

	rec, err = store.Increment(ctx, key, now)
	if err != nil {
		return nil, err
	}
	if rec.WindowResetAt.IsZero() {
		if err := store.SetExpiry(ctx, key, now, window.ResetAt); err != nil {
			return nil, err
		}
		rec.WindowResetAt = window.ResetAt
	}
	if rec.Count > policy.Limit {
		s.logger.WarnContext(ctx, "quota overshoot from concurrent increment",
			"policy", policy.ID,
			"count", rec.Count,
			"limit", policy.Limit,
		)
		if s.metrics != nil {
			s.metrics.RecordOvershoot(string(policy.ID))
		}
	}
	return shape(policy, rec, true, now, window), nil
}

func (s *Service) failOpen(ctx context.Context, clientID string, policy models.Policy, now time.Time, window models.Window, cause error) (*models.Decision, error) {
	reason := "error"
	switch {
	case errors.Is(cause, context.DeadlineExceeded):
		reason = "timeout"
	case errors.Is(cause, circuit.ErrOpen):
		reason = "circuit_open"
	}

	if !policy.FailOpen {
		s.logger.ErrorContext(ctx, "quota store failed",
			"policy", policy.ID,
			"reason", reason,
			"error", cause,
		)
		return nil, dErrors.Wrap(cause, dErrors.CodeUnavailable, "quota store unavailable")
	}

	observability.LogAudit(ctx, s.logger, slog.LevelWarn, "quota_fail_open",
		"policy", policy.ID,
		"client", privacy.AnonymizeIP(clientID),
		"reason", reason,
		"error", cause,
	)
	if s.metrics != nil {
		s.metrics.RecordFailOpen(string(policy.ID), reason)
		s.metrics.RecordDecision(string(policy.ID), string(models.OutcomeAdmitted))
	}

	return &models.Decision{
		Outcome:   models.OutcomeAdmitted,
		Policy:    policy.ID,
		Limit:     policy.Limit,
		Remaining: max(policy.Limit-1, 0),
		ResetAt:   window.ResetAt,
		ResetIn:   max(window.ResetAt.Sub(now), 0),
		Degraded:  true,
	}, nil
}

// shape turns a store result into a Decision. A record without expiry is
// reported against the window the gate computed.
func shape(policy models.Policy, rec *models.CounterRecord, admitted bool, now time.Time, window models.Window) *models.Decision {
	resetAt := window.ResetAt
	count := 0
	if rec != nil {
		count = rec.Count
		if !rec.WindowResetAt.IsZero() {
			resetAt = rec.WindowResetAt
		}
	}

	d := &models.Decision{
		Outcome: models.OutcomeDenied,
		Policy:  policy.ID,
		Limit:   policy.Limit,
		ResetAt: resetAt,
		ResetIn: max(resetAt.Sub(now), 0),
	}
	if admitted {
		d.Outcome = models.OutcomeAdmitted
		d.Remaining = max(policy.Limit-count, 0)
	}
	return d
}

type result[T any] struct {
	val T
	err error
}

// withTimeout runs fn under a deadline and stops waiting when it passes,
// even if fn ignores its context. A zero timeout means no deadline.
func withTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- result[T]{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
