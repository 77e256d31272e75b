// Package handler exposes the quota gate over HTTP: the read-only admin
// usage view and the rate limit response headers shared by gated endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	quotaconfig "folio/internal/quota/config"
	"folio/internal/quota/models"
	dErrors "folio/pkg/domain-errors"
	"folio/pkg/platform/httputil"
	"folio/pkg/requestcontext"
)

type Service interface {
	Peek(ctx context.Context, clientID string, policy models.Policy, now time.Time) (*models.Usage, error)
}

type Handler struct {
	service  Service
	policies *quotaconfig.Config
	logger   *slog.Logger
}

func New(service Service, policies *quotaconfig.Config, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		policies: policies,
		logger:   logger,
	}
}

// RegisterAdmin mounts the admin routes. Callers wrap r with the admin token
// middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/quota/{policy}/{client}", h.HandleGetUsage)
}

// HandleGetUsage implements GET /admin/quota/{policy}/{client}.
// Output: { "policy": "chat", "client": "203.0.113.7", "count": 3, "limit": 10, ... }
func (h *Handler) HandleGetUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	policyID := models.PolicyID(chi.URLParam(r, "policy"))
	policy, ok := h.policies.Policy(policyID)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Unknown quota policy"))
		return
	}

	client, err := url.PathUnescape(chi.URLParam(r, "client"))
	if err != nil || client == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid client identifier"))
		return
	}

	usage, err := h.service.Peek(ctx, client, policy, requestcontext.Now(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read quota usage",
			"error", err,
			"policy", policyID,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, usage)
}
