package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks QuotaGate,Verifier,Classifier

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"folio/internal/classify/models"
	"folio/internal/classify/service/mocks"
	"folio/internal/platform/metrics"
	quotaconfig "folio/internal/quota/config"
	quotamodels "folio/internal/quota/models"
	"folio/internal/quota/ports"
	quotaservice "folio/internal/quota/service"
	"folio/internal/quota/store/memory"
	dErrors "folio/pkg/domain-errors"
)

// ServiceSuite covers the classifier flow.
//
// Justification: the order validate, verify, gate, invoke decides when a
// quota slot is spent. Input and verification failures must leave the
// counter alone; a model failure must not refund it.
type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	ctrl       *gomock.Controller
	gate       *mocks.MockQuotaGate
	verifier   *mocks.MockVerifier
	classifier *mocks.MockClassifier
	metrics    *metrics.Metrics
	policy     quotamodels.Policy
	now        time.Time
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.gate = mocks.NewMockQuotaGate(s.ctrl)
	s.verifier = mocks.NewMockVerifier(s.ctrl)
	s.classifier = mocks.NewMockClassifier(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.policy = quotaconfig.DefaultConfig().DemoteRemote().MustPolicy(quotamodels.PolicyClassifier)
	s.now = time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	s.service = New(s.gate, s.verifier, s.classifier, s.policy,
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		WithMetrics(s.metrics),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) request() *models.ClassifyRequest {
	return &models.ClassifyRequest{Image: "data:image/png;base64,QUJD", TurnstileToken: "tok"}
}

func (s *ServiceSuite) admitted(remaining int) *quotamodels.Decision {
	return &quotamodels.Decision{
		Outcome:   quotamodels.OutcomeAdmitted,
		Policy:    quotamodels.PolicyClassifier,
		Limit:     5,
		Remaining: remaining,
		ResetAt:   time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
	}
}

func (s *ServiceSuite) TestHappyPathRunsInOrder() {
	gomock.InOrder(
		s.verifier.EXPECT().Verify(gomock.Any(), "tok", "203.0.113.9").Return(nil),
		s.gate.EXPECT().Evaluate(gomock.Any(), "203.0.113.9", s.policy, s.now).Return(s.admitted(4), nil),
		s.classifier.EXPECT().Classify(gomock.Any(), "data:image/png;base64,QUJD").Return(true, nil),
	)

	res, err := s.service.Classify(s.ctx, s.request(), "203.0.113.9", s.now)
	s.Require().NoError(err)
	s.True(res.Match)
	s.Equal(4, res.Decision.Remaining)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ClassificationsTotal.WithLabelValues("yes")))
}

func (s *ServiceSuite) TestInputErrorsSpendNothing() {
	s.Run("no image", func() {
		_, err := s.service.Classify(s.ctx, &models.ClassifyRequest{TurnstileToken: "tok"}, "a", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.Equal(models.MsgNoImage, err.Error())
	})
	s.Run("no token", func() {
		_, err := s.service.Classify(s.ctx, &models.ClassifyRequest{Image: "QUJD"}, "a", s.now)
		s.Equal(models.MsgVerificationMissing, err.Error())
	})
}

func (s *ServiceSuite) TestVerificationFailureSpendsNothing() {
	s.verifier.EXPECT().Verify(gomock.Any(), "tok", "a").Return(errors.New("invalid-input-response"))

	_, err := s.service.Classify(s.ctx, s.request(), "a", s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeVerificationFailed))
	s.Equal(models.MsgVerificationFailed, err.Error())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.VerificationsTotal.WithLabelValues("failed")))
}

func (s *ServiceSuite) TestDeniedSkipsModel() {
	denied := &quotamodels.Decision{Outcome: quotamodels.OutcomeDenied, Limit: 5}
	s.verifier.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.gate.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(denied, nil)

	res, err := s.service.Classify(s.ctx, s.request(), "a", s.now)
	s.Require().NoError(err)
	s.False(res.Decision.Allowed())
	s.False(res.Match)
}

func (s *ServiceSuite) TestModelFailureKeepsSlot() {
	s.verifier.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.gate.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(s.admitted(2), nil)
	s.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(false, errors.New("openai: 500"))

	_, err := s.service.Classify(s.ctx, s.request(), "a", s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
	s.Equal(models.MsgClassifyFailed, err.Error())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.InvocationsTotal.WithLabelValues("classifier", "error")))
}

func (s *ServiceSuite) TestUnconfiguredFailsBeforeGate() {
	svc := New(s.gate, s.verifier, nil, s.policy)

	_, err := svc.Classify(s.ctx, s.request(), "a", s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Equal(models.MsgNotConfigured, err.Error())
}

func (s *ServiceSuite) TestMissingVerifierFailsClosed() {
	svc := New(s.gate, nil, s.classifier, s.policy)

	_, err := svc.Classify(s.ctx, s.request(), "a", s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeVerificationFailed))
}

func (s *ServiceSuite) TestDailyScenarioWithRealGate() {
	gate, err := quotaservice.New(map[quotamodels.Backend]ports.CounterStore{
		quotamodels.BackendMemory: memory.New(),
	})
	s.Require().NoError(err)
	svc := New(gate, s.verifier, s.classifier, s.policy)

	s.verifier.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(7)
	s.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(false, nil).Times(6)

	for i := range 5 {
		res, err := svc.Classify(s.ctx, s.request(), "198.51.100.1", s.now.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(err)
		s.Equal(4-i, res.Decision.Remaining)
	}

	res, err := svc.Classify(s.ctx, s.request(), "198.51.100.1", s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.False(res.Decision.Allowed())

	nextDay := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)
	res, err = svc.Classify(s.ctx, s.request(), "198.51.100.1", nextDay)
	s.Require().NoError(err)
	s.True(res.Decision.Allowed())
	s.Equal(4, res.Decision.Remaining)
}
