// Package circuit wraps sony/gobreaker with the options and error shape the
// rest of the codebase uses.
package circuit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned without calling through while the circuit is open or
// while a half-open probe is already in flight.
var ErrOpen = errors.New("circuit open")

// State mirrors gobreaker's three states as strings for logs and metrics.
type State string

const (
	StateClosed   State = "closed"
	StateHalfOpen State = "half_open"
	StateOpen     State = "open"
)

// Breaker trips after FailureThreshold consecutive failures, stays open for
// OpenTimeout, then lets HalfOpenRequests probes through.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

type settings struct {
	failureThreshold uint32
	openTimeout      time.Duration
	halfOpenRequests uint32
	onStateChange    func(name string, from, to State)
}

type Option func(*settings)

// WithFailureThreshold sets the consecutive failures that open the circuit.
// Default is 5.
func WithFailureThreshold(n uint32) Option {
	return func(s *settings) {
		if n > 0 {
			s.failureThreshold = n
		}
	}
}

// WithOpenTimeout sets how long the circuit stays open. Default is 30s.
func WithOpenTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.openTimeout = d
		}
	}
}

// WithHalfOpenRequests sets how many probes run while half-open. Default 1.
func WithHalfOpenRequests(n uint32) Option {
	return func(s *settings) {
		if n > 0 {
			s.halfOpenRequests = n
		}
	}
}

func WithStateChange(fn func(name string, from, to State)) Option {
	return func(s *settings) {
		s.onStateChange = fn
	}
}

func New(name string, opts ...Option) *Breaker {
	cfg := settings{
		failureThreshold: 5,
		openTimeout:      30 * time.Second,
		halfOpenRequests: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.halfOpenRequests,
		Timeout:     cfg.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.failureThreshold
		},
		// A caller giving up is not a dependency failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	if cfg.onStateChange != nil {
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.onStateChange(name, convert(from), convert(to))
		}
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *Breaker) Name() string {
	return b.cb.Name()
}

func (b *Breaker) State() State {
	return convert(b.cb.State())
}

// Do runs fn through the breaker. When the breaker refuses the call the
// error wraps ErrOpen.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("breaker %s: %w", b.cb.Name(), ErrOpen)
	}
	if err != nil {
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

func convert(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
