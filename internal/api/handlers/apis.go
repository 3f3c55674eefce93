// apis.go — обработчик GET /apis?uri=: сводка по OpenAPI-документу.
package handlers

import (
	"net/http"

	apierrors "github.com/digiglu/api-api/internal/api/errors"
)

// DescribeAPI — GET /apis?uri=.
func (h *APIHandler) DescribeAPI(w http.ResponseWriter, r *http.Request) {
	uri, err := queryString(r, "uri", true)
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр uri: "+err.Error())
		return
	}

	summary, err := h.apidocs.Describe(r.Context(), uri)
	if err != nil {
		h.writeServiceError(w, r, "describe api", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
