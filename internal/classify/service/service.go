// Package service runs a classifier request through validation, human
// verification and the daily quota before the model is called.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"folio/internal/classify/models"
	"folio/internal/platform/metrics"
	"folio/internal/platform/privacy"
	quotamodels "folio/internal/quota/models"
	dErrors "folio/pkg/domain-errors"
)

var errNoVerifier = errors.New("no human verification checker configured")

type QuotaGate interface {
	Evaluate(ctx context.Context, clientID string, policy quotamodels.Policy, now time.Time) (*quotamodels.Decision, error)
}

type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

type Classifier interface {
	Classify(ctx context.Context, image string) (bool, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

type Service struct {
	gate       QuotaGate
	verifier   Verifier
	classifier Classifier
	policy     quotamodels.Policy
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// New wires the classifier flow. A nil classifier leaves the endpoint
// unconfigured: every request fails with CodeUnavailable before any quota
// is spent.
func New(gate QuotaGate, verifier Verifier, classifier Classifier, policy quotamodels.Policy, opts ...Option) *Service {
	s := &Service{
		gate:       gate,
		verifier:   verifier,
		classifier: classifier,
		policy:     policy,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Policy() quotamodels.Policy {
	return s.policy
}

// Classify checks req on behalf of clientID. The quota slot is consumed
// before the model call and is not refunded if the call fails.
func (s *Service) Classify(ctx context.Context, req *models.ClassifyRequest, clientID string, now time.Time) (*models.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.classifier == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, models.MsgNotConfigured)
	}

	if s.policy.RequiresHumanVerification {
		err := errNoVerifier
		if s.verifier != nil {
			err = s.verifier.Verify(ctx, req.TurnstileToken, clientID)
		}
		if s.metrics != nil {
			s.metrics.RecordVerification(err == nil)
		}
		if err != nil {
			s.logger.WarnContext(ctx, "human verification failed",
				"error", err,
				"client", privacy.AnonymizeIP(clientID),
			)
			return nil, dErrors.Wrap(err, dErrors.CodeVerificationFailed, models.MsgVerificationFailed)
		}
	}

	decision, err := s.gate.Evaluate(ctx, clientID, s.policy, now)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed() {
		return &models.Result{Decision: decision}, nil
	}

	start := time.Now()
	match, err := s.classifier.Classify(ctx, req.Image)
	if s.metrics != nil {
		s.metrics.ObserveInvocation("classifier", err, time.Since(start).Seconds())
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "image classification failed",
			"error", err,
			"remaining", decision.Remaining,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, models.MsgClassifyFailed)
	}
	if s.metrics != nil {
		s.metrics.RecordClassification(match)
	}

	return &models.Result{Decision: decision, Match: match}, nil
}
