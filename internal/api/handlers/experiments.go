// experiments.go — обработчики /experiments.
package handlers

import (
	"net/http"

	"github.com/digiglu/api-api/internal/service"
)

// ListExperiments — GET /experiments.
func (h *APIHandler) ListExperiments(w http.ResponseWriter, r *http.Request) {
	h.listRecords(w, r, service.ResourceExperiments)
}

// GetExperiment — GET /experiments/{id}.
func (h *APIHandler) GetExperiment(w http.ResponseWriter, r *http.Request) {
	h.getRecord(w, r, service.ResourceExperiments)
}

// CreateExperiment — POST /experiments.
func (h *APIHandler) CreateExperiment(w http.ResponseWriter, r *http.Request) {
	h.createRecord(w, r, service.ResourceExperiments)
}
