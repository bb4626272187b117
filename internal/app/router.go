package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/jokesdb/jokes-api/internal/audit/http"
	"github.com/jokesdb/jokes-api/internal/auth"
	"github.com/jokesdb/jokes-api/internal/categories"
	"github.com/jokesdb/jokes-api/internal/jokes"
	"github.com/jokesdb/jokes-api/internal/observability"
	"github.com/jokesdb/jokes-api/internal/platform/httpx"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/users"
	"github.com/jokesdb/jokes-api/internal/votes"
	"github.com/jokesdb/jokes-api/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Authenticator      *auth.Authenticator
	AuthHandler        *auth.Handler
	JokesHandler       *jokes.Handler
	CategoriesHandler  *categories.Handler
	VotesHandler       *votes.Handler
	UsersHandler       *users.Handler
	PermissionsHandler *rbac.PermissionsHandler
	RBACMiddleware     rbac.Middleware
	JobHandler         *jobs.Handler
	AuditHandler       *audithttp.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Route not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Route("/jokes", func(r chi.Router) {
			params.JokesHandler.MountPublicRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(params.Authenticator.Middleware)
				params.JokesHandler.MountRoutes(r)
				params.VotesHandler.MountJokeRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(params.Authenticator.Middleware)
			r.Route("/categories", params.CategoriesHandler.MountRoutes)
			r.Route("/votes", params.VotesHandler.MountRoutes)
			r.Route("/users", func(r chi.Router) {
				params.UsersHandler.MountRoutes(r)
				params.VotesHandler.MountUserRoutes(r)
			})
			params.PermissionsHandler.MountRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(params.RBACMiddleware.RequireRole(rbac.RoleAdmin))
				if params.JobHandler != nil {
					r.Route("/jobs", params.JobHandler.MountRoutes)
				}
				if params.AuditHandler != nil {
					r.Group(func(r chi.Router) {
						r.Use(params.RBACMiddleware.RequireAll(rbac.PermUsersBrowse, rbac.PermUsersAssignRoles))
						r.Route("/audit", params.AuditHandler.MountRoutes)
					})
				}
			})
		})
	})

	return r
}
