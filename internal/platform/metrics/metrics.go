package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application metrics for the AI-backed endpoints.
type Metrics struct {
	// Downstream model calls
	InvocationsTotal   *prometheus.CounterVec
	InvocationLatency  *prometheus.HistogramVec
	VerificationsTotal *prometheus.CounterVec

	// Endpoint outcomes
	ClassificationsTotal *prometheus.CounterVec
	ChatRepliesTotal     *prometheus.CounterVec

	// Health data
	HealthDataLoads *prometheus.CounterVec
}

// New creates and registers the metrics with reg; nil means the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		InvocationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_ai_invocations_total",
			Help: "Downstream model calls by invoker and outcome",
		}, []string{"invoker", "outcome"}),
		InvocationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "folio_ai_invocation_latency_seconds",
			Help:    "Latency of downstream model calls in seconds",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32},
		}, []string{"invoker"}),
		VerificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_human_verifications_total",
			Help: "Human verification checks by outcome",
		}, []string{"outcome"}),
		ClassificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_classifications_total",
			Help: "Completed image classifications by result",
		}, []string{"result"}),
		ChatRepliesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_chat_replies_total",
			Help: "Chat replies by source",
		}, []string{"source"}),
		HealthDataLoads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_health_data_loads_total",
			Help: "Health data loads by source and outcome",
		}, []string{"source", "outcome"}),
	}
}

func (m *Metrics) ObserveInvocation(invoker string, err error, seconds float64) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.InvocationsTotal.WithLabelValues(invoker, outcome).Inc()
	m.InvocationLatency.WithLabelValues(invoker).Observe(seconds)
}

func (m *Metrics) RecordVerification(passed bool) {
	outcome := "passed"
	if !passed {
		outcome = "failed"
	}
	m.VerificationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordClassification(match bool) {
	result := "no"
	if match {
		result = "yes"
	}
	m.ClassificationsTotal.WithLabelValues(result).Inc()
}

// RecordChatReply counts a reply; source is "model" or "canned".
func (m *Metrics) RecordChatReply(source string) {
	m.ChatRepliesTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordHealthDataLoad(source string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.HealthDataLoads.WithLabelValues(source, outcome).Inc()
}
