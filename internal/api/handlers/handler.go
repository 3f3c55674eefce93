// handler.go — основной обработчик API api-api.
// Объединяет health и бизнес-обработчики, переводит ошибки сервисного слоя
// в HTTP-ответы.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/oapi-codegen/runtime"

	apierrors "github.com/digiglu/api-api/internal/api/errors"
	"github.com/digiglu/api-api/internal/api/middleware"
	"github.com/digiglu/api-api/internal/domain/model"
	"github.com/digiglu/api-api/internal/schemadiff"
	"github.com/digiglu/api-api/internal/service"
)

// maxBodySize — ограничение размера тела запроса на создание.
const maxBodySize = 5 << 20

// RecordService — операции над записями коллекций.
type RecordService interface {
	List(ctx context.Context, caller service.Caller, res service.Resource, params service.ListParams) (*service.Page, error)
	Get(ctx context.Context, caller service.Caller, res service.Resource, id string) (model.Document, error)
	Create(ctx context.Context, caller service.Caller, res service.Resource, body model.Document) (model.Document, error)
}

// SchemaService — операции над схемами.
type SchemaService interface {
	Create(ctx context.Context, caller service.Caller, req service.CreateSchemaRequest) (model.Document, error)
	Detail(ctx context.Context, caller service.Caller, id string) (model.Document, error)
	Diff(ctx context.Context, caller service.Caller, srcID, trgID string) (*schemadiff.Result, error)
	Fetch(ctx context.Context, id, version string) (json.RawMessage, error)
	FetchByURI(ctx context.Context, uri string) (json.RawMessage, error)
}

// APIDocService — сводка по OpenAPI-документу.
type APIDocService interface {
	Describe(ctx context.Context, uri string) (*service.APISummary, error)
}

// APIHandler — основной обработчик API api-api.
type APIHandler struct {
	health  *HealthHandler
	records RecordService
	schemas SchemaService
	apidocs APIDocService
	logger  *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	records RecordService,
	schemas SchemaService,
	apidocs APIDocService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:  health,
		records: records,
		schemas: schemas,
		apidocs: apidocs,
		logger:  logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeRaw записывает готовое JSON-тело без перекодирования.
func writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// callerFrom возвращает вызывающего из claims JWT middleware.
func callerFrom(r *http.Request) (service.Caller, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.Subject == "" {
		return service.Caller{}, false
	}
	return service.Caller{ID: claims.Subject, Authorization: claims.Authorization}, true
}

// queryPage разбирает параметр page: отсутствует — 1,
// не целое или меньше 1 — ошибка.
func queryPage(r *http.Request) (int, error) {
	var page *int
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		return 0, err
	}
	if page == nil {
		return 1, nil
	}
	if *page < 1 {
		return 0, errors.New("page должен быть >= 1")
	}
	return *page, nil
}

// queryString разбирает необязательный строковый параметр.
func queryString(r *http.Request, name string, required bool) (string, error) {
	var v *string
	if err := runtime.BindQueryParameter("form", true, required, name, r.URL.Query(), &v); err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

// decodeBody разбирает JSON-тело запроса в dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.UseNumber()
	return dec.Decode(dst)
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// NotFound — 404 без тела.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFoundEmpty(w)
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, "Запись с таким id уже существует")
	case errors.Is(err, service.ErrUpstreamUnavailable):
		h.logger.Error("Зависимость недоступна",
			slog.String("operation", operation),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.UpstreamUnavailable(w, "Зависимость недоступна: "+operation)
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("operation", operation),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка: "+operation)
	}
}
