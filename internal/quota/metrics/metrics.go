package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	DecisionsTotal       *prometheus.CounterVec
	FailOpenTotal        *prometheus.CounterVec
	StoreLatencySeconds  *prometheus.HistogramVec
	SweepRunsTotal       *prometheus.CounterVec
	SweepRemovedTotal    prometheus.Counter
	SweepDurationSeconds prometheus.Histogram
	BreakerStateChanges  *prometheus.CounterVec
	OvershootAdmissions  *prometheus.CounterVec
}

// New registers the quota metrics with reg; nil means the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		DecisionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_quota_decisions_total",
			Help: "Quota gate decisions by policy and outcome",
		}, []string{"policy", "outcome"}),
		FailOpenTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_quota_fail_open_total",
			Help: "Requests admitted because the counter store failed",
		}, []string{"policy", "reason"}),
		StoreLatencySeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "folio_quota_store_latency_seconds",
			Help:    "Counter store round trip latency",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5},
		}, []string{"policy"}),
		SweepRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_quota_sweep_runs_total",
			Help: "Total number of counter table sweeps",
		}, []string{"status"}),
		SweepRemovedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "folio_quota_sweep_removed_total",
			Help: "Expired counter records removed by sweeps",
		}),
		SweepDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name: "folio_quota_sweep_duration_seconds",
			Help: "Duration of counter table sweeps in seconds",
		}),
		BreakerStateChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_quota_breaker_transitions_total",
			Help: "Counter store circuit breaker state transitions",
		}, []string{"breaker", "to"}),
		OvershootAdmissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_quota_overshoot_total",
			Help: "Admissions past the limit caused by a non-atomic store race",
		}, []string{"policy"}),
	}
}

func (m *Metrics) RecordDecision(policy, outcome string) {
	m.DecisionsTotal.WithLabelValues(policy, outcome).Inc()
}

func (m *Metrics) RecordFailOpen(policy, reason string) {
	m.FailOpenTotal.WithLabelValues(policy, reason).Inc()
}

func (m *Metrics) ObserveStoreLatency(policy string, seconds float64) {
	m.StoreLatencySeconds.WithLabelValues(policy).Observe(seconds)
}

func (m *Metrics) RecordSweep(status string, removed int, seconds float64) {
	m.SweepRunsTotal.WithLabelValues(status).Inc()
	m.SweepRemovedTotal.Add(float64(removed))
	m.SweepDurationSeconds.Observe(seconds)
}

func (m *Metrics) RecordBreakerTransition(name, to string) {
	m.BreakerStateChanges.WithLabelValues(name, to).Inc()
}

func (m *Metrics) RecordOvershoot(policy string) {
	m.OvershootAdmissions.WithLabelValues(policy).Inc()
}
