// Package api defines the contracts for API requests and responses.
// It decouples the API structure from the internal service models.
package api

import (
	"time"

	"menueditor-backend/internal/backup"
	"menueditor-backend/internal/flash"
	"menueditor-backend/internal/search"
	"menueditor-backend/internal/service/editor"
)

// MenusField is the form field carrying the JSON-encoded menus on save.
const MenusField = "menus"

// PageResponse is the editor page model.
type PageResponse struct {
	*editor.Page
	Flash []flash.Message `json:"flash"`
}

// SaveResponse reports a save to JSON clients.
type SaveResponse struct {
	Saved   bool           `json:"saved"`
	State   editor.State   `json:"state"`
	Trace   []editor.State `json:"trace"`
	SaveID  string         `json:"save_id"`
	Message string         `json:"message"`
	Backup  *backup.Record `json:"backup,omitempty"`
	// BackupError describes a failed snapshot. The save itself succeeded.
	BackupError string `json:"backup_error,omitempty"`
}

// NewSaveResponse converts an outcome.
func NewSaveResponse(out *editor.Outcome) SaveResponse {
	resp := SaveResponse{
		Saved:   out.Saved(),
		State:   out.State,
		Trace:   out.Trace,
		SaveID:  out.SaveID,
		Message: out.Message(),
		Backup:  out.Backup,
	}
	if out.BackupErr != nil {
		resp.BackupError = out.BackupErr.Error()
	}
	return resp
}

// BackupsResponse lists snapshots newest first.
type BackupsResponse struct {
	Backups []backup.Record `json:"backups"`
}

// SearchResponse is the picker's result list. It is sent as a bare array.
type SearchResponse []search.Result

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Storage   string    `json:"storage"`
	Timestamp time.Time `json:"timestamp"`
}
