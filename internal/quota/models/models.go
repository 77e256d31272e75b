package models

import (
	"math"
	"time"
)

// CounterRecord is one client's count within one window of one policy.
type CounterRecord struct {
	Key   string
	Count int
	// WindowResetAt is when the record stops counting. Zero means no expiry
	// has been attached yet.
	WindowResetAt time.Time
}

// Live reports whether the record still counts at now.
func (r *CounterRecord) Live(now time.Time) bool {
	if r == nil {
		return false
	}
	return r.WindowResetAt.IsZero() || now.Before(r.WindowResetAt)
}

// RecordState is the lifecycle position of a record within its window.
type RecordState string

const (
	StateFresh        RecordState = "fresh"
	StateAccumulating RecordState = "accumulating"
	StateSaturated    RecordState = "saturated"
)

// StateOf classifies a record against a limit. Expired and missing records
// are Fresh.
func StateOf(r *CounterRecord, limit int, now time.Time) RecordState {
	if !r.Live(now) || r.Count <= 0 {
		return StateFresh
	}
	if r.Count >= limit {
		return StateSaturated
	}
	return StateAccumulating
}

type Outcome string

const (
	OutcomeAdmitted Outcome = "admitted"
	OutcomeDenied   Outcome = "denied"
)

// Decision is the gate's answer for one request.
type Decision struct {
	Outcome   Outcome
	Policy    PolicyID
	Limit     int
	Remaining int
	ResetAt   time.Time
	ResetIn   time.Duration
	// Degraded marks a fail-open admission: the store was not consulted
	// successfully and Remaining is an estimate.
	Degraded bool
}

func (d *Decision) Allowed() bool {
	return d.Outcome == OutcomeAdmitted
}

// RetryAfterSeconds rounds ResetIn up to whole seconds, minimum 1.
func (d *Decision) RetryAfterSeconds() int {
	return ceilUnits(d.ResetIn, time.Second)
}

// ResetInMinutes rounds ResetIn up to whole minutes, minimum 1.
func (d *Decision) ResetInMinutes() int {
	return ceilUnits(d.ResetIn, time.Minute)
}

func ceilUnits(d, unit time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(float64(d) / float64(unit)))
}

// Usage is a read-only snapshot of a client's standing under a policy.
type Usage struct {
	Policy    PolicyID    `json:"policy"`
	Client    string      `json:"client"`
	Key       string      `json:"key"`
	Count     int         `json:"count"`
	Limit     int         `json:"limit"`
	Remaining int         `json:"remaining"`
	State     RecordState `json:"state"`
	ResetAt   *time.Time  `json:"reset_at,omitempty"`
	Backend   Backend     `json:"backend"`
}
