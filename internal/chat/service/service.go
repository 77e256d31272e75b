// Package service answers health-data chat messages under the hourly quota.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"folio/internal/chat/models"
	"folio/internal/platform/metrics"
	quotamodels "folio/internal/quota/models"
	dErrors "folio/pkg/domain-errors"
	"folio/pkg/platform/validation"
)

const systemPromptHeader = `You are a helpful health analytics assistant for a personal Garmin data dashboard.
You have access to the owner's health and fitness data from their Garmin watch.

Answer questions about their fitness, activities, sleep, heart rate, VO2 max, race predictions, and training.
Be conversational, insightful, and reference specific data points when relevant.
If asked about data you don't have, say so politely.

Keep responses concise but informative (2-4 sentences for simple questions, more for complex analysis).

Here is the Garmin health data:

`

const healthDataUnavailable = "(Health data is temporarily unavailable.)"

type QuotaGate interface {
	Evaluate(ctx context.Context, clientID string, policy quotamodels.Policy, now time.Time) (*quotamodels.Decision, error)
}

type Responder interface {
	Reply(ctx context.Context, system, message string) (string, error)
}

// HealthContext supplies the data block embedded in the system prompt.
type HealthContext interface {
	PromptContext(ctx context.Context) (string, error)
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
	gate      QuotaGate
	responder Responder
	health    HealthContext
	policy    quotamodels.Policy
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New wires the chat flow. A nil responder turns every valid message into
// the canned reply without consulting the quota.
func New(gate QuotaGate, responder Responder, health HealthContext, policy quotamodels.Policy, opts ...Option) *Service {
	s := &Service{
		gate:      gate,
		responder: responder,
		health:    health,
		policy:    policy,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reply answers req for clientID. A denied Result carries the decision and
// an empty Reply.
func (s *Service) Reply(ctx context.Context, req *models.ChatRequest, clientID string, now time.Time) (*models.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.responder == nil {
		if s.metrics != nil {
			s.metrics.RecordChatReply("canned")
		}
		return &models.Result{Reply: models.CannedResponse, Canned: true}, nil
	}

	decision, err := s.gate.Evaluate(ctx, clientID, s.policy, now)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed() {
		return &models.Result{Decision: decision}, nil
	}

	start := time.Now()
	message := validation.Truncate(strings.TrimSpace(req.Message), validation.MaxChatMessageRunes)
	reply, err := s.responder.Reply(ctx, s.systemPrompt(ctx), message)
	if s.metrics != nil {
		s.metrics.ObserveInvocation("chat", err, time.Since(start).Seconds())
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "chat model call failed",
			"error", err,
			"remaining", decision.Remaining,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, models.MsgChatFailed)
	}
	if strings.TrimSpace(reply) == "" {
		reply = models.MsgNoResponse
	}
	if s.metrics != nil {
		s.metrics.RecordChatReply("model")
	}

	return &models.Result{Decision: decision, Reply: reply}, nil
}

func (s *Service) systemPrompt(ctx context.Context) string {
	if s.health == nil {
		return systemPromptHeader + healthDataUnavailable
	}
	data, err := s.health.PromptContext(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "health data unavailable for chat prompt", "error", err)
		return systemPromptHeader + healthDataUnavailable
	}
	return systemPromptHeader + data
}
