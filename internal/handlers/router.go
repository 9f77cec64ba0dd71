package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"menueditor-backend/internal/infrastructure/observability"
	"menueditor-backend/internal/middleware"
	"menueditor-backend/internal/service/editor"
	"menueditor-backend/pkg/api"
	apperrors "menueditor-backend/pkg/errors"
)

// RouterConfig configures routing and the middleware chain.
type RouterConfig struct {
	// BasePath is where the editor is mounted, e.g. /extend/menueditor.
	BasePath       string
	AllowedOrigins []string
	RequestTimeout time.Duration
	// Permission guards every route below BasePath.
	Permission  string
	ServiceName string
	// MetricsPath serves prometheus metrics when set and Metrics is non-nil.
	MetricsPath string
}

// Dependencies are the handlers and collaborators the router wires together.
type Dependencies struct {
	Editor *EditorHandler
	Search *SearchHandler
	Health *HealthHandler

	// Validator checks bearer tokens. A nil interface disables authentication.
	Validator middleware.TokenValidator
	Metrics   *observability.Collector
	Errors    *apperrors.Handler
	Logger    *zap.Logger
}

// NewRouter builds the HTTP router.
func NewRouter(cfg RouterConfig, deps Dependencies) *chi.Mux {
	if cfg.BasePath == "" {
		cfg.BasePath = "/"
	}
	if cfg.Permission == "" {
		cfg.Permission = editor.Permission
	}

	r := chi.NewRouter()

	// Global middleware - applied to all routes
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger, deps.Errors))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(observability.TracingMiddleware(cfg.ServiceName))
	if deps.Metrics != nil {
		r.Use(observability.MetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.Logger(deps.Logger))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout, deps.Logger, deps.Errors))
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		deps.Errors.Handle(w, req, apperrors.NewNotFoundError("route"))
	})

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/health", deps.Health.Health)
		r.Get("/swagger.yaml", api.SwaggerHandler())
		r.Get("/swagger.json", api.SwaggerHandler())
		if deps.Metrics != nil && cfg.MetricsPath != "" {
			r.Handle(cfg.MetricsPath, deps.Metrics.Handler())
		}
	})

	r.Route(cfg.BasePath, func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.Validator, deps.Logger, deps.Errors))
		r.Use(middleware.RequirePermission(cfg.Permission, deps.Errors))

		r.Get("/", deps.Editor.Page)
		r.Post("/", deps.Editor.Save)
		r.Get("/search", deps.Search.Search)

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", deps.Editor.Backups)
			r.Post("/{name}/restore", deps.Editor.Restore)
		})
	})

	return r
}
