package handlers

import (
	"context"
	"net/http"

	"menueditor-backend/internal/search"
	"menueditor-backend/pkg/api"
	apperrors "menueditor-backend/pkg/errors"
)

// Searcher finds link targets for the editor's picker.
type Searcher interface {
	Search(ctx context.Context, q string) ([]search.Result, error)
}

// SearchHandler serves the picker's search endpoint.
type SearchHandler struct {
	searcher Searcher
	errs     *apperrors.Handler
}

// NewSearchHandler creates the search handler.
func NewSearchHandler(searcher Searcher, errs *apperrors.Handler) *SearchHandler {
	return &SearchHandler{searcher: searcher, errs: errs}
}

// Search handles GET /search?q=. The response is always a JSON array.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.searcher.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	api.Success(w, http.StatusOK, api.SearchResponse(results))
}
