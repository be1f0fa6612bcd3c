// Package httptransport assembles the public HTTP surface. It owns no
// business logic: each module registers its own routes and the router
// adds the cross-cutting middleware plus the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agencydesk/internal/platform/middleware"
	"agencydesk/pkg/platform/httputil"
)

// RouteRegistrar is implemented by module handlers that mount their own
// routes on the shared router.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// NewRouter wires the shared middleware stack, the operational endpoints,
// and every module's routes.
func NewRouter(logger *slog.Logger, modules ...RouteRegistrar) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, m := range modules {
		m.Register(r)
	}
	return r
}
