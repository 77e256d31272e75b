// Package httptransport assembles the public HTTP surface: middleware order,
// per-route body limits and the optional admin group.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	chathandler "folio/internal/chat/handler"
	classifyhandler "folio/internal/classify/handler"
	garminhandler "folio/internal/garmin/handler"
	"folio/internal/platform/health"
	quotahandler "folio/internal/quota/handler"
	"folio/pkg/platform/middleware/admin"
	"folio/pkg/platform/middleware/metadata"
	"folio/pkg/platform/middleware/request"
	"folio/pkg/platform/middleware/requesttime"
	"folio/pkg/platform/validation"
)

const DefaultRequestTimeout = 30 * time.Second

// Deps carries everything the router mounts. Quota may be nil; the admin
// group is mounted only when both Quota and AdminToken are set.
type Deps struct {
	Logger         *slog.Logger
	Resolver       *metadata.Resolver
	Clock          func() time.Time
	RequestMetrics *request.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration

	Health   *health.Handler
	Classify *classifyhandler.Handler
	Chat     *chathandler.Handler
	Garmin   *garminhandler.Handler
	Quota    *quotahandler.Handler

	AdminToken string
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(d Deps) http.Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(d.Resolver.Handler)
	r.Use(requesttime.Middleware(d.Clock))
	r.Use(request.Logger(d.Logger))
	r.Use(request.LatencyMiddleware(d.RequestMetrics, routePattern))

	d.Health.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(timeout))
		r.Use(request.ContentTypeJSON)

		r.Group(func(r chi.Router) {
			r.Use(request.BodyLimit(validation.MaxImageBodySize))
			d.Classify.Register(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(request.BodyLimit(validation.MaxBodySize))
			d.Chat.Register(r)
			d.Garmin.Register(r)

			if d.Quota != nil && d.AdminToken != "" {
				r.Group(func(r chi.Router) {
					r.Use(admin.RequireAdminToken(d.AdminToken, d.Logger))
					d.Quota.RegisterAdmin(r)
				})
			}
		})
	})

	return r
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
