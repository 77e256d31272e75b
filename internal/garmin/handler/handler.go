// Package handler serves the health data status and dashboard views.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"folio/internal/garmin/models"
	"folio/pkg/platform/httputil"
	"folio/pkg/requestcontext"
)

type Service interface {
	Status(ctx context.Context) (*models.Status, error)
	Summary(ctx context.Context) (*models.Summary, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/garmin", h.HandleStatus)
	r.Get("/api/garmin/dashboard", h.HandleDashboard)
}

// HandleStatus implements GET /api/garmin.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := h.service.Status(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load health data status",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// HandleDashboard implements GET /api/garmin/dashboard.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.service.Summary(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build health dashboard",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	httputil.WriteJSON(w, http.StatusOK, summary)
}
