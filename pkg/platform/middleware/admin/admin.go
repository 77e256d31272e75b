package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "folio/pkg/domain-errors"
	"folio/pkg/platform/httputil"
	"folio/pkg/requestcontext"
)

// RequireAdminToken guards operator-only routes with the X-Admin-Token
// header. An empty expectedToken rejects every request.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Admin token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
