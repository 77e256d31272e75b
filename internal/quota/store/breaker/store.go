// Package breaker puts a circuit breaker in front of a remote counter store.
// While Redis is down every call fails fast with circuit.ErrOpen, so the
// gate fails open immediately instead of waiting out its timeout.
package breaker

import (
	"context"
	"time"

	"folio/internal/quota/models"
	"folio/internal/quota/ports"
	"folio/pkg/platform/circuit"
)

// Backend is what gets wrapped: a store with the atomic admit path.
type Backend interface {
	ports.CounterStore
	ports.Admitter
}

type Store struct {
	next    Backend
	breaker *circuit.Breaker
}

func New(next Backend, breaker *circuit.Breaker) *Store {
	return &Store{next: next, breaker: breaker}
}

func (s *Store) Get(ctx context.Context, key string, now time.Time) (*models.CounterRecord, error) {
	return circuit.Do(s.breaker, func() (*models.CounterRecord, error) {
		return s.next.Get(ctx, key, now)
	})
}

func (s *Store) Increment(ctx context.Context, key string, now time.Time) (*models.CounterRecord, error) {
	return circuit.Do(s.breaker, func() (*models.CounterRecord, error) {
		return s.next.Increment(ctx, key, now)
	})
}

func (s *Store) SetExpiry(ctx context.Context, key string, now, resetAt time.Time) error {
	_, err := circuit.Do(s.breaker, func() (struct{}, error) {
		return struct{}{}, s.next.SetExpiry(ctx, key, now, resetAt)
	})
	return err
}

func (s *Store) Admit(ctx context.Context, key string, limit int, now, resetAt time.Time) (*models.CounterRecord, bool, error) {
	type result struct {
		rec      *models.CounterRecord
		admitted bool
	}
	res, err := circuit.Do(s.breaker, func() (result, error) {
		rec, admitted, err := s.next.Admit(ctx, key, limit, now, resetAt)
		return result{rec: rec, admitted: admitted}, err
	})
	if err != nil {
		return nil, false, err
	}
	return res.rec, res.admitted, nil
}
