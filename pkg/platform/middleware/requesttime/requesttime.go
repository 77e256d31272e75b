// Package requesttime pins one "now" per request so the quota window and the
// logs of a single request agree on the time.
package requesttime

import (
	"net/http"
	"time"

	"folio/pkg/requestcontext"
)

// Middleware stores clock() in the request context. A nil clock means
// time.Now.
func Middleware(clock func() time.Time) func(http.Handler) http.Handler {
	if clock == nil {
		clock = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
