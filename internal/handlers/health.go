package handlers

import (
	"net/http"
	"time"

	"menueditor-backend/pkg/api"
)

// HealthHandler reports liveness.
type HealthHandler struct {
	version  string
	location string
	now      func() time.Time
}

// NewHealthHandler creates the health handler. location names the menu
// document's storage.
func NewHealthHandler(version, location string) *HealthHandler {
	return &HealthHandler{version: version, location: location, now: time.Now}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, api.HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Storage:   h.location,
		Timestamp: h.now().UTC(),
	})
}
