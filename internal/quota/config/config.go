package config

import (
	"time"

	"folio/internal/quota/models"
	dErrors "folio/pkg/domain-errors"
)

// DefaultStoreTimeout bounds one counter store round trip.
const DefaultStoreTimeout = 300 * time.Millisecond

// SweepFraction is the share of the shortest in-memory window between sweeps.
const SweepFraction = 10

// Config holds the quota policies keyed by ID.
type Config struct {
	Policies map[models.PolicyID]models.Policy
}

// DefaultConfig returns the two shipped policies: five classifier checks per
// UTC day against the remote store, ten chat messages per hour (anchored on
// the first message) in the in-process table.
func DefaultConfig() *Config {
	return &Config{
		Policies: map[models.PolicyID]models.Policy{
			models.PolicyClassifier: {
				ID:                        models.PolicyClassifier,
				Limit:                     5,
				Window:                    24 * time.Hour,
				RequiresHumanVerification: true,
				Anchor:                    models.AnchorCalendar,
				Backend:                   models.BackendRemote,
				FailOpen:                  true,
				StoreTimeout:              DefaultStoreTimeout,
			},
			models.PolicyChat: {
				ID:           models.PolicyChat,
				Limit:        10,
				Window:       time.Hour,
				Anchor:       models.AnchorFirstRequest,
				Backend:      models.BackendMemory,
				FailOpen:     true,
				StoreTimeout: DefaultStoreTimeout,
			},
		},
	}
}

// Policy returns the policy registered under id.
func (c *Config) Policy(id models.PolicyID) (models.Policy, bool) {
	p, ok := c.Policies[id]
	return p, ok
}

// MustPolicy is Policy for IDs wired at startup.
func (c *Config) MustPolicy(id models.PolicyID) models.Policy {
	p, ok := c.Policies[id]
	if !ok {
		panic("quota policy not configured: " + string(id))
	}
	return p
}

// WithLimits returns a copy with the per-policy limits and store timeout
// overridden. Zero values keep the defaults.
func (c *Config) WithLimits(classifierDaily, chatHourly int, storeTimeout time.Duration) *Config {
	out := &Config{Policies: make(map[models.PolicyID]models.Policy, len(c.Policies))}
	for id, p := range c.Policies {
		if storeTimeout > 0 {
			p.StoreTimeout = storeTimeout
		}
		switch {
		case id == models.PolicyClassifier && classifierDaily > 0:
			p.Limit = classifierDaily
		case id == models.PolicyChat && chatHourly > 0:
			p.Limit = chatHourly
		}
		out.Policies[id] = p
	}
	return out
}

// DemoteRemote rewrites every remote-backed policy to the in-process table.
// Used when no remote store is configured.
func (c *Config) DemoteRemote() *Config {
	out := &Config{Policies: make(map[models.PolicyID]models.Policy, len(c.Policies))}
	for id, p := range c.Policies {
		if p.Backend == models.BackendRemote {
			p.Backend = models.BackendMemory
		}
		out.Policies[id] = p
	}
	return out
}

// Validate checks every policy and that map keys match policy IDs.
func (c *Config) Validate() error {
	if len(c.Policies) == 0 {
		return dErrors.New(dErrors.CodeValidation, "no quota policies configured")
	}
	for id, p := range c.Policies {
		if id != p.ID {
			return dErrors.New(dErrors.CodeValidation, "policy registered under "+string(id)+" has id "+string(p.ID))
		}
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SweepInterval is SweepFraction of the shortest memory-backed window, or
// zero when no policy uses the in-process table.
func (c *Config) SweepInterval() time.Duration {
	var shortest time.Duration
	for _, p := range c.Policies {
		if p.Backend != models.BackendMemory {
			continue
		}
		if shortest == 0 || p.Window < shortest {
			shortest = p.Window
		}
	}
	return shortest / SweepFraction
}
