package models

import (
	"fmt"
	"time"

	dErrors "folio/pkg/domain-errors"
)

// PolicyID names a protected endpoint's quota policy.
type PolicyID string

const (
	PolicyClassifier PolicyID = "classifier"
	PolicyChat       PolicyID = "chat"
)

// Anchor decides where a window starts.
type Anchor string

const (
	// AnchorCalendar aligns windows to UTC boundaries (midnight for a 24h
	// window). Every client's window resets at the same instant.
	AnchorCalendar Anchor = "calendar"
	// AnchorFirstRequest starts the window at a client's first admitted
	// request in a fresh window.
	AnchorFirstRequest Anchor = "first_request"
)

func (a Anchor) IsValid() bool {
	return a == AnchorCalendar || a == AnchorFirstRequest
}

// Backend selects the counter store a policy is evaluated against.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRemote Backend = "remote"
)

func (b Backend) IsValid() bool {
	return b == BackendMemory || b == BackendRemote
}

// Policy is the immutable quota configuration of one endpoint.
type Policy struct {
	ID                        PolicyID
	Limit                     int
	Window                    time.Duration
	RequiresHumanVerification bool
	Anchor                    Anchor
	Backend                   Backend
	// FailOpen admits requests when the store errors or times out.
	FailOpen bool
	// StoreTimeout bounds one store round trip.
	StoreTimeout time.Duration
}

// Validate checks the policy's own invariants.
func (p Policy) Validate() error {
	switch {
	case p.ID == "":
		return dErrors.New(dErrors.CodeValidation, "policy id is required")
	case p.Limit <= 0:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("policy %s: limit must be positive", p.ID))
	case p.Window <= 0:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("policy %s: window must be positive", p.ID))
	case !p.Anchor.IsValid():
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("policy %s: unknown anchor %q", p.ID, p.Anchor))
	case !p.Backend.IsValid():
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("policy %s: unknown backend %q", p.ID, p.Backend))
	case p.StoreTimeout < 0:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("policy %s: store timeout must not be negative", p.ID))
	}
	return nil
}

// Window describes the window a request at a given instant falls into.
type Window struct {
	// ID distinguishes calendar windows in the counter key. Empty for
	// first-request windows, which live under a single key per client.
	ID string
	// ResetAt is when a record created now stops counting.
	ResetAt time.Time
}

// WindowAt returns the window a fresh record created at now belongs to.
func (p Policy) WindowAt(now time.Time) Window {
	if p.Anchor != AnchorCalendar {
		return Window{ResetAt: now.Add(p.Window)}
	}

	start := now.UTC().Truncate(p.Window)
	id := start.Format("20060102T1504")
	if p.Window%(24*time.Hour) == 0 {
		id = start.Format(time.DateOnly)
	}
	return Window{ID: id, ResetAt: start.Add(p.Window)}
}
