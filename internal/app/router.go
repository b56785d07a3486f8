package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vantage-payroll/vantage-payroll/internal/payroll"
	"github.com/vantage-payroll/vantage-payroll/internal/roster"
	"github.com/vantage-payroll/vantage-payroll/internal/workhours"
	"github.com/vantage-payroll/vantage-payroll/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	PayrollHandler   *payroll.Handler
	RosterHandler    *roster.Handler
	WorkHoursHandler *workhours.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with Vantage defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/payroll", params.PayrollHandler.MountRoutes)
		r.Route("/consultants", params.RosterHandler.MountRoutes)
		r.Route("/workhours", params.WorkHoursHandler.MountRoutes)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
