// collections.go — обработчики /collections (коллекции API эксперимента).
package handlers

import (
	"net/http"

	apierrors "github.com/digiglu/api-api/internal/api/errors"
	"github.com/digiglu/api-api/internal/domain/filter"
	"github.com/digiglu/api-api/internal/service"
)

// FieldRefID — ссылка коллекции на владеющую сущность.
const FieldRefID = "refId"

// ListCollections — GET /collections?refId=.
// Без refId возвращаются все видимые коллекции.
func (h *APIHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	refID, err := queryString(r, FieldRefID, false)
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр refId: "+err.Error())
		return
	}

	var match []filter.Clause
	if refID != "" {
		match = append(match, filter.Eq(FieldRefID, refID))
	}
	h.listRecords(w, r, service.ResourceCollections, match...)
}

// GetCollection — GET /collections/{id}.
func (h *APIHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	h.getRecord(w, r, service.ResourceCollections)
}

// CreateCollection — POST /collections.
func (h *APIHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	h.createRecord(w, r, service.ResourceCollections)
}
