// routes.go — таблица маршрутов api-api.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/digiglu/api-api/internal/api/errors"
)

// HandlerFromMux регистрирует все маршруты API на роутере.
func HandlerFromMux(h *APIHandler, r chi.Router) chi.Router {
	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)
	r.Get("/metrics", h.GetMetrics)

	r.Route("/experiments", func(r chi.Router) {
		r.Get("/", h.ListExperiments)
		r.Post("/", h.CreateExperiment)
		r.Get("/{id}", h.GetExperiment)
	})

	r.Route("/collections", func(r chi.Router) {
		r.Get("/", h.ListCollections)
		r.Post("/", h.CreateCollection)
		r.Get("/{id}", h.GetCollection)
	})

	r.Route("/schemas", func(r chi.Router) {
		r.Get("/", h.ListSchemas)
		r.Post("/", h.CreateSchema)
		r.Get("/diff", h.DiffSchemas)
		r.Get("/{id}", h.GetSchema)
	})

	r.Get("/registry/schemas", h.GetRegistrySchemaByURI)
	r.Get("/registry/schemas/{id}/{version}", h.GetRegistrySchema)

	r.Get("/apis", h.DescribeAPI)

	// Неизвестный маршрут — 404 с телом ошибки
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apierrors.NotFound(w, "маршрут не найден: "+req.URL.Path)
	})

	return r
}
