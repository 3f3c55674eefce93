// schemas.go — обработчики /schemas: листинг метаданных, создание схемы,
// детальная карточка со ссылками и сравнение двух схем.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/digiglu/api-api/internal/api/errors"
	"github.com/digiglu/api-api/internal/hal"
	"github.com/digiglu/api-api/internal/service"
)

// ListSchemas — GET /schemas.
func (h *APIHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	h.listRecords(w, r, service.ResourceSchemas)
}

// CreateSchema — POST /schemas.
// Тело: {experimentId, name, version, private?, teamRef?, schema}.
func (h *APIHandler) CreateSchema(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		apierrors.Unauthorized(w, "Вызывающий не определён")
		return
	}

	var req service.CreateSchemaRequest
	if err := decodeBody(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	stored, err := h.schemas.Create(r.Context(), caller, req)
	if err != nil {
		h.writeServiceError(w, r, "create schema", err)
		return
	}

	writeJSON(w, http.StatusCreated, hal.Record(stored, hal.BaseURL(r)))
}

// GetSchema — GET /schemas/{id}: метаданные, тело из реестра, baseSchema и reference.
func (h *APIHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		apierrors.Unauthorized(w, "Вызывающий не определён")
		return
	}

	id := chi.URLParam(r, "id")
	doc, err := h.schemas.Detail(r.Context(), caller, id)
	if err != nil {
		h.writeServiceError(w, r, "schema detail", err)
		return
	}

	writeJSON(w, http.StatusOK, hal.Record(doc, hal.ParentURL(r, id)))
}

// DiffSchemas — GET /schemas/diff?srcId=&trgId=.
// Результат компаратора возвращается без изменений.
func (h *APIHandler) DiffSchemas(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		apierrors.Unauthorized(w, "Вызывающий не определён")
		return
	}

	srcID, err := queryString(r, "srcId", true)
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр srcId: "+err.Error())
		return
	}
	trgID, err := queryString(r, "trgId", true)
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр trgId: "+err.Error())
		return
	}

	result, err := h.schemas.Diff(r.Context(), caller, srcID, trgID)
	if err != nil {
		h.writeServiceError(w, r, "schema diff", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
