package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"folio/internal/classify/models"
	quotahandler "folio/internal/quota/handler"
	dErrors "folio/pkg/domain-errors"
	"folio/pkg/platform/httputil"
	"folio/pkg/requestcontext"
)

type Service interface {
	Classify(ctx context.Context, req *models.ClassifyRequest, clientID string, now time.Time) (*models.Result, error)
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
	r.Post("/api/classify", h.HandleClassify)
}

// HandleClassify implements POST /api/classify.
// Input: { "image": "data:image/jpeg;base64,...", "turnstileToken": "..." }
// Output: { "result": true, "remainingChecks": 4 }
func (h *Handler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.ClassifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Classify(ctx, req, requestcontext.ClientIP(ctx), requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if !res.Decision.Allowed() {
		quotahandler.WriteDeniedHeaders(w, res.Decision)
		httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, models.LimitReachedMessage(res.Decision.Limit)))
		return
	}

	quotahandler.WriteRateLimitHeaders(w, res.Decision)
	httputil.WriteJSON(w, http.StatusOK, &models.ClassifyResponse{
		Result:          res.Match,
		RemainingChecks: res.Decision.Remaining,
	})
}
