// Package health serves liveness, readiness and status probes.
package health

import (
	"context"
	"maps"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"folio/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Checker is any dependency that can report its own health.
type Checker interface {
	Health(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Health(ctx context.Context) error { return f(ctx) }

// Handler provides health check endpoints.
type Handler struct {
	startTime    time.Time
	environment  string
	checkTimeout time.Duration

	mu       sync.RWMutex
	checks   map[string]Checker
	features map[string]string
}

func New(environment string) *Handler {
	return &Handler{
		startTime:    time.Now(),
		environment:  environment,
		checkTimeout: 2 * time.Second,
		checks:       make(map[string]Checker),
		features:     make(map[string]string),
	}
}

// RegisterCheck adds a dependency to the readiness probe.
func (h *Handler) RegisterCheck(name string, check Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// SetFeature records a static fact shown by /health, such as which counter
// backend a policy resolved to.
func (h *Handler) SetFeature(name, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.features[name] = value
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every check concurrently and answers 503 if any fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := maps.Clone(h.checks)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(checks))
	for name, check := range checks {
		go func() {
			results <- result{name: name, err: check.Health(ctx)}
		}()
	}

	response := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(checks))}
	for range checks {
		res := <-results
		if res.err != nil {
			response.Checks[res.name] = "down: " + res.err.Error()
			response.Status = "not_ready"
			continue
		}
		response.Checks[res.name] = "up"
	}

	status := http.StatusOK
	if response.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, response)
}

type StatusResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Environment   string            `json:"environment"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Timestamp     string            `json:"timestamp"`
	Features      map[string]string `json:"features,omitempty"`
	Dependencies  []string          `json:"dependencies,omitempty"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	features := maps.Clone(h.features)
	deps := make([]string, 0, len(h.checks))
	for name := range h.checks {
		deps = append(deps, name)
	}
	h.mu.RUnlock()
	sort.Strings(deps)

	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Features:      features,
		Dependencies:  deps,
	})
}
