package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"catalog-builder-service/internal/slug"
	"catalog-builder-service/internal/store"
)

// GetPublicCatalog serves the storefront page of an active catalog. No
// authentication is required.
func (h *HTTPHandler) GetPublicCatalog(w http.ResponseWriter, r *http.Request) {
	catalogSlug := chi.URLParam(r, "catalogSlug")
	if !slug.Valid(catalogSlug) {
		respondWithError(w, http.StatusNotFound, store.ErrCatalogNotFound.Error())
		return
	}

	page, err := h.pages.Page(r.Context(), catalogSlug)
	if err != nil {
		if errors.Is(err, store.ErrCatalogNotFound) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		zap.S().Errorf("GetPublicCatalog failed to render %q: %v", catalogSlug, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load catalog")
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}
