// registry.go — сквозное чтение тел схем из реестра.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/digiglu/api-api/internal/api/errors"
)

// GetRegistrySchema — GET /registry/schemas/{id}/{version}.
// Тело без служебных полей реестра.
func (h *APIHandler) GetRegistrySchema(w http.ResponseWriter, r *http.Request) {
	body, err := h.schemas.Fetch(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "version"))
	if err != nil {
		h.writeServiceError(w, r, "registry fetch", err)
		return
	}
	writeRaw(w, http.StatusOK, body)
}

// GetRegistrySchemaByURI — GET /registry/schemas?uri=.
// Тело возвращается как есть.
func (h *APIHandler) GetRegistrySchemaByURI(w http.ResponseWriter, r *http.Request) {
	uri, err := queryString(r, "uri", true)
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр uri: "+err.Error())
		return
	}

	body, err := h.schemas.FetchByURI(r.Context(), uri)
	if err != nil {
		h.writeServiceError(w, r, "registry fetch by uri", err)
		return
	}
	writeRaw(w, http.StatusOK, body)
}
