package di

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"menueditor-backend/internal/backup"
	"menueditor-backend/internal/config"
	"menueditor-backend/internal/infrastructure/observability"
	"menueditor-backend/internal/search"
	"menueditor-backend/internal/service/editor"
	"menueditor-backend/internal/storage"
)

// Container holds the wired HTTP service.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Router    *chi.Mux
	Store     storage.DocumentStore
	Rotator   *backup.Rotator
	Editor    editor.Service
	Search    *search.Service
	Metrics   *observability.Collector
	Site      *config.SiteStore
	Watcher   *config.SiteWatcher
	Tracing   *observability.TracerProvider
	ColdStart *ColdStartTracker
}

// MetricsHandler serves prometheus metrics, or 404 when metrics are disabled.
func (c *Container) MetricsHandler() http.Handler {
	if c.Metrics == nil {
		return http.NotFoundHandler()
	}
	return c.Metrics.Handler()
}

// Tools holds what the operator CLI needs: storage and the editor service,
// without the HTTP layer or the content index.
type Tools struct {
	Config  *config.Config
	Logger  *zap.Logger
	Store   storage.DocumentStore
	Rotator *backup.Rotator
	Editor  editor.Service
}
