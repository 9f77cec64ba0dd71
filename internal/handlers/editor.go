// Package handlers serves the menu editor, its content search and the health
// check over HTTP.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"menueditor-backend/internal/backup"
	"menueditor-backend/internal/flash"
	"menueditor-backend/internal/middleware"
	"menueditor-backend/internal/service/editor"
	"menueditor-backend/pkg/api"
	apperrors "menueditor-backend/pkg/errors"
)

// formOverhead allows for the percent-encoding of a form-posted payload.
const formOverhead = 3

// BackupWarning is flashed when a save succeeded without a snapshot.
const BackupWarning = "The previous menu could not be backed up."

// EditorHandler serves the editor page, saves and backups.
type EditorHandler struct {
	service  editor.Service
	flashes  *flash.Store
	errs     *apperrors.Handler
	logger   *zap.Logger
	home     string
	maxBytes int64
}

// EditorOptions configures the editor handler.
type EditorOptions struct {
	// Home is the editor page URL that restores redirect to.
	Home string
	// MaxPayload is the largest accepted menus payload. Request bodies are
	// bounded accordingly.
	MaxPayload int64
}

// NewEditorHandler creates the editor handler.
func NewEditorHandler(service editor.Service, flashes *flash.Store, errs *apperrors.Handler, logger *zap.Logger, opts EditorOptions) *EditorHandler {
	var maxBytes int64
	if opts.MaxPayload > 0 {
		maxBytes = opts.MaxPayload*formOverhead + 4096
	}
	if opts.Home == "" {
		opts.Home = "/"
	}
	return &EditorHandler{
		service:  service,
		flashes:  flashes,
		errs:     errs,
		logger:   logger,
		home:     opts.Home,
		maxBytes: maxBytes,
	}
}

// Page handles GET on the editor.
func (h *EditorHandler) Page(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Page(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	resp := api.PageResponse{Page: page, Flash: h.flashes.Pop(w, r)}
	if resp.Flash == nil {
		resp.Flash = []flash.Message{}
	}
	api.Success(w, http.StatusOK, resp)
}

// Save handles POST on the editor. The menus arrive JSON-encoded in the
// "menus" form or query field; without it the request is answered like GET.
func (h *EditorHandler) Save(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errs.Handle(w, r, apperrors.NewValidationFailed("menu payload is too large", err).
				WithDetails(map[string]interface{}{"max_bytes": tooLarge.Limit}))
			return
		}
		h.errs.Handle(w, r, apperrors.NewMalformedPayload("request body could not be parsed", err))
		return
	}

	// An absent or empty menus field renders the editor.
	values, ok := r.Form[api.MenusField]
	if !ok || len(values) == 0 || values[0] == "" {
		h.Page(w, r)
		return
	}

	out, err := h.service.Save(r.Context(), []byte(values[0]))
	h.respond(w, r, r.URL.Path, out, err)
}

// Backups handles GET /backups.
func (h *EditorHandler) Backups(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Backups(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	if records == nil {
		records = []backup.Record{}
	}
	api.Success(w, http.StatusOK, api.BackupsResponse{Backups: records})
}

// Restore handles POST /backups/{name}/restore.
func (h *EditorHandler) Restore(w http.ResponseWriter, r *http.Request) {
	// Restores carry no body.
	_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 4096))

	out, err := h.service.Restore(r.Context(), chi.URLParam(r, "name"))
	h.respond(w, r, h.home, out, err)
}

// respond answers JSON clients with the outcome or the error, and browsers
// with a flash message and a redirect to target.
func (h *EditorHandler) respond(w http.ResponseWriter, r *http.Request, target string, out *editor.Outcome, err error) {
	if out == nil {
		if err == nil {
			err = apperrors.NewInternalError("save produced no outcome")
		}
		h.errs.Handle(w, r, err)
		return
	}

	h.logger.Debug("Menu save finished",
		zap.String("save_id", out.SaveID),
		zap.String("state", string(out.State)),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
	)

	if api.WantsJSON(r) {
		if err != nil {
			h.errs.Handle(w, r, err)
			return
		}
		api.Success(w, http.StatusOK, api.NewSaveResponse(out))
		return
	}

	switch {
	case out.Saved() && out.BackupErr != nil:
		h.flashes.Add(w, r,
			flash.Message{Level: flash.LevelSuccess, Text: out.Message()},
			flash.Message{Level: flash.LevelWarning, Text: BackupWarning},
		)
	case out.Saved():
		h.flashes.Add(w, r, flash.Message{Level: flash.LevelSuccess, Text: out.Message()})
	default:
		h.flashes.Add(w, r, flash.Message{Level: flash.LevelError, Text: out.Message()})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
