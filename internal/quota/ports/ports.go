// Package ports defines the counter store contract the quota gate is
// written against. Both the in-process table and the Redis store satisfy it.
package ports

import (
	"context"
	"time"

	"folio/internal/quota/models"
)

// CounterStore is the minimal capability set a backend must offer.
// Every method receives the caller's now so that window arithmetic is driven
// by one clock.
type CounterStore interface {
	// Get returns the live record under key, or nil when the key is missing
	// or its window has ended.
	Get(ctx context.Context, key string, now time.Time) (*models.CounterRecord, error)

	// Increment adds one to the live record under key, starting a new record
	// at 1 when none is live. A new record has no expiry until SetExpiry.
	Increment(ctx context.Context, key string, now time.Time) (*models.CounterRecord, error)

	// SetExpiry attaches resetAt to the record under key.
	SetExpiry(ctx context.Context, key string, now, resetAt time.Time) error
}

// Admitter is the optional atomic fast path: compare against limit and
// increment in one step. A denied call leaves the record untouched.
type Admitter interface {
	Admit(ctx context.Context, key string, limit int, now, resetAt time.Time) (rec *models.CounterRecord, admitted bool, err error)
}

// Sweeper is implemented by stores that need explicit purging of expired
// records.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (removed int, err error)
}
