// records.go — общие обработчики листинга, получения и создания записей.
// Ответы — HAL-документы.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/digiglu/api-api/internal/api/errors"
	"github.com/digiglu/api-api/internal/domain/filter"
	"github.com/digiglu/api-api/internal/domain/model"
	"github.com/digiglu/api-api/internal/hal"
	"github.com/digiglu/api-api/internal/repository"
	"github.com/digiglu/api-api/internal/service"
)

// listRecords — GET коллекции: page, fields и дополнительные условия match.
func (h *APIHandler) listRecords(w http.ResponseWriter, r *http.Request, res service.Resource, match ...filter.Clause) {
	caller, ok := callerFrom(r)
	if !ok {
		apierrors.Unauthorized(w, "Вызывающий не определён")
		return
	}

	page, err := queryPage(r)
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр page: "+err.Error())
		return
	}
	fields, err := queryString(r, "fields", false)
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр fields: "+err.Error())
		return
	}

	result, err := h.records.List(r.Context(), caller, res, service.ListParams{
		Page:   page,
		Fields: repository.ParseProjection(fields),
		Match:  match,
	})
	if err != nil {
		h.writeServiceError(w, r, "list "+res.Name, err)
		return
	}

	writeJSON(w, http.StatusOK, hal.NewCollection(result.Items, result.State, hal.RequestURL(r), hal.BaseURL(r)))
}

// getRecord — GET отдельной записи по {id}.
func (h *APIHandler) getRecord(w http.ResponseWriter, r *http.Request, res service.Resource) {
	caller, ok := callerFrom(r)
	if !ok {
		apierrors.Unauthorized(w, "Вызывающий не определён")
		return
	}

	id := chi.URLParam(r, "id")
	doc, err := h.records.Get(r.Context(), caller, res, id)
	if err != nil {
		h.writeServiceError(w, r, "get "+res.Name, err)
		return
	}

	writeJSON(w, http.StatusOK, hal.Record(doc, hal.ParentURL(r, id)))
}

// createRecord — POST коллекции. Тело — JSON-объект с полями записи.
func (h *APIHandler) createRecord(w http.ResponseWriter, r *http.Request, res service.Resource) {
	caller, ok := callerFrom(r)
	if !ok {
		apierrors.Unauthorized(w, "Вызывающий не определён")
		return
	}

	var body model.Document
	if err := decodeBody(w, r, &body); err != nil || body == nil {
		apierrors.ValidationError(w, "Тело запроса должно быть JSON-объектом")
		return
	}

	stored, err := h.records.Create(r.Context(), caller, res, body)
	if err != nil {
		h.writeServiceError(w, r, "create "+res.Name, err)
		return
	}

	writeJSON(w, http.StatusCreated, hal.Record(stored, hal.BaseURL(r)))
}
