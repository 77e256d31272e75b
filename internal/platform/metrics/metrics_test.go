package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveInvocation("chat", nil, 0.4)
	m.ObserveInvocation("chat", errors.New("overloaded"), 1.2)
	m.RecordVerification(true)
	m.RecordVerification(false)
	m.RecordClassification(true)
	m.RecordChatReply("canned")
	m.RecordHealthDataLoad("snapshot", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvocationsTotal.WithLabelValues("chat", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvocationsTotal.WithLabelValues("chat", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.InvocationLatency))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerificationsTotal.WithLabelValues("passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerificationsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassificationsTotal.WithLabelValues("yes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatRepliesTotal.WithLabelValues("canned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HealthDataLoads.WithLabelValues("snapshot", "success")))
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) }, "duplicate registration must not be silent")
}
