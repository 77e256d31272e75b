package handler

import (
	"net/http"
	"strconv"

	"folio/internal/quota/models"
)

// WriteRateLimitHeaders adds the X-RateLimit-* headers for d.
//
// Headers:
//   - X-RateLimit-Limit: the policy limit
//   - X-RateLimit-Remaining: admissions left in the window
//   - X-RateLimit-Reset: unix seconds when the window ends
func WriteRateLimitHeaders(w http.ResponseWriter, d *models.Decision) {
	if d == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// WriteDeniedHeaders is WriteRateLimitHeaders plus Retry-After.
func WriteDeniedHeaders(w http.ResponseWriter, d *models.Decision) {
	if d == nil {
		return
	}
	WriteRateLimitHeaders(w, d)
	w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds()))
}
