// Package observability holds the structured audit log helper shared by the
// quota gate and its workers.
package observability

import (
	"context"
	"log/slog"

	"folio/pkg/requestcontext"
)

// LogAudit writes one audit line tagged with the event name, request ID and
// the caller's User-Agent when the request carried one.
func LogAudit(ctx context.Context, logger *slog.Logger, level slog.Level, event string, attrs ...any) {
	if logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		attrs = append(attrs, "user_agent", ua)
	}
	attrs = append(attrs, "event", event, "log_type", "audit")
	logger.Log(ctx, level, event, attrs...)
}
