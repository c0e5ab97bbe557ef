package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/helix-hms/helix-hms/internal/appointments"
	"github.com/helix-hms/helix-hms/internal/auth"
	"github.com/helix-hms/helix-hms/internal/departments"
	"github.com/helix-hms/helix-hms/internal/medrecords"
	"github.com/helix-hms/helix-hms/internal/observability"
	"github.com/helix-hms/helix-hms/internal/patients"
	"github.com/helix-hms/helix-hms/internal/rbac"
	"github.com/helix-hms/helix-hms/internal/users"
	"github.com/helix-hms/helix-hms/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	AuthMiddleware      *auth.Middleware
	AuthHandler         *auth.Handler
	UsersHandler        *users.Handler
	PatientsHandler     *patients.Handler
	AppointmentsHandler *appointments.Handler
	RecordsHandler      *medrecords.Handler
	DepartmentsHandler  *departments.Handler
	RBACHandler         *rbac.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with Helix defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Auth:    params.AuthMiddleware,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.PatientsHandler != nil {
		r.Route("/patients", params.PatientsHandler.MountRoutes)
	}
	if params.AppointmentsHandler != nil {
		r.Route("/appointments", params.AppointmentsHandler.MountRoutes)
	}
	if params.RecordsHandler != nil {
		r.Route("/medical-records", params.RecordsHandler.MountRoutes)
	}
	if params.DepartmentsHandler != nil {
		r.Route("/departments", params.DepartmentsHandler.MountRoutes)
	}
	if params.RBACHandler != nil {
		r.Route("/rbac", params.RBACHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
