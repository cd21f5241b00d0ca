package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/backoffice-console/backoffice/internal/console"
	"github.com/backoffice-console/backoffice/internal/dashboard"
	"github.com/backoffice-console/backoffice/internal/observability"
	"github.com/backoffice-console/backoffice/internal/shared"
	"github.com/backoffice-console/backoffice/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	DashboardHandler *dashboard.Handler
	Pages            []console.Mountable
	Metrics          *observability.Metrics
	JobHandler       *jobs.Handler
	// Health reports readiness of backing services; nil means always healthy.
	Health func(r *http.Request) error
}

// NewRouter constructs the chi.Router with console defaults. Health, metrics, job
// queue health and static assets sit outside the session, admin gate and CSRF stack.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Health != nil {
			if err := params.Health(r); err != nil {
				params.Logger.Warn("health check failed", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Handle("/static/*", staticHandler())

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(chimw.Logger)

		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(r)
		}
		for _, page := range params.Pages {
			r.Route("/"+page.Name(), page.MountRoutes)
		}
	})

	return r
}
