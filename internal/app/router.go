package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/taskdesk/taskdesk/internal/audit/http"
	"github.com/taskdesk/taskdesk/internal/auth"
	"github.com/taskdesk/taskdesk/internal/observability"
	"github.com/taskdesk/taskdesk/internal/platform/httpx"
	"github.com/taskdesk/taskdesk/internal/rbac"
	"github.com/taskdesk/taskdesk/internal/roles"
	"github.com/taskdesk/taskdesk/internal/users"
	"github.com/taskdesk/taskdesk/internal/workitems"
	"github.com/taskdesk/taskdesk/jobs"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Health             HealthChecker
	RBACMiddleware     rbac.Middleware
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	RolesHandler       *rbac.RolesHandler
	PermissionsHandler *rbac.PermissionsHandler
	TasksHandler       *workitems.Handler
	WorkOrdersHandler  *workitems.Handler
	AuditHandler       *audithttp.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with TaskDesk defaults.
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

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := params.Health.Ping(ctx); err != nil {
				params.Logger.Warn("health check failed", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	authLimit := 20
	if params.Config != nil && params.Config.AuthRateLimit > 0 {
		authLimit = params.Config.AuthRateLimit
	}
	authenticate := params.RBACMiddleware.Authenticate

	if params.AuthHandler != nil {
		r.Route("/auth", func(r chi.Router) {
			r.Use(rateLimiter(authLimit))
			params.AuthHandler.MountRoutes(r, authenticate)
		})
	}
	r.Route("/users", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(rateLimiter(authLimit))
				params.AuthHandler.MountResetRoutes(r)
			})
		}
		if params.UsersHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				params.UsersHandler.MountRoutes(r)
			})
		}
	})
	if params.RolesHandler != nil {
		mountAuthenticated(r, "/roles", authenticate, params.RolesHandler.MountRoutes)
	}
	if params.PermissionsHandler != nil {
		mountAuthenticated(r, "/permissions", authenticate, params.PermissionsHandler.MountRoutes)
	}
	if params.TasksHandler != nil {
		mountAuthenticated(r, "/tasks", authenticate, params.TasksHandler.MountRoutes)
	}
	if params.WorkOrdersHandler != nil {
		mountAuthenticated(r, "/workorders", authenticate, params.WorkOrdersHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		mountAuthenticated(r, "/audit", authenticate, params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		mountAuthenticated(r, "/jobs", authenticate, func(r chi.Router) {
			r.Use(params.RBACMiddleware.Require(rbac.Authenticated().OnlyRoles(roles.AdminRoleName), ""))
			params.JobHandler.MountRoutes(r)
		})
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Message(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Message(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})
	return r
}

func mountAuthenticated(r chi.Router, prefix string, authenticate func(http.Handler) http.Handler, mount func(chi.Router)) {
	r.Route(prefix, func(r chi.Router) {
		r.Use(authenticate)
		mount(r)
	})
}
