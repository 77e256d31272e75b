package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"folio/internal/chat/models"
	quotahandler "folio/internal/quota/handler"
	"folio/pkg/platform/httputil"
	"folio/pkg/requestcontext"
)

type Service interface {
	Reply(ctx context.Context, req *models.ChatRequest, clientID string, now time.Time) (*models.Result, error)
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

// Register mounts the chat route. GET on the same path is served by the
// health data handler.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/garmin", h.HandleChat)
}

// HandleChat implements POST /api/garmin.
// Input: { "message": "How has my VO2 max changed?" }
// Output: { "response": "..." }
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.ChatRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Reply(ctx, req, requestcontext.ClientIP(ctx), requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if res.Decision != nil && !res.Decision.Allowed() {
		resetIn := res.Decision.ResetInMinutes()
		quotahandler.WriteRateLimitHeaders(w, res.Decision)
		httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitedResponse{
			Response:    models.ThrottleMessage(res.Decision.Limit, resetIn),
			RateLimited: true,
			ResetIn:     resetIn,
		})
		return
	}

	quotahandler.WriteRateLimitHeaders(w, res.Decision)
	httputil.WriteJSON(w, http.StatusOK, &models.ChatResponse{Response: res.Reply})
}
