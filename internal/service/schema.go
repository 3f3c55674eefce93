// schema.go — сценарии работы со схемами: создание в реестре с локальными
// метаданными, детальная карточка со ссылками, сравнение двух версий
// и сквозное чтение из реестра.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/digiglu/api-api/internal/domain/model"
	"github.com/digiglu/api-api/internal/registry"
	"github.com/digiglu/api-api/internal/schemadiff"
	"github.com/digiglu/api-api/internal/schemaref"
)

// Поля детальной карточки схемы.
const (
	FieldSchemaBody = "schema"
	FieldBaseSchema = "baseSchema"
	FieldReference  = "reference"
)

// Prometheus-метрики работы с реестром и сравнения схем.
var (
	registryRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aa_registry_requests_total",
		Help: "Общее количество запросов к реестру схем.",
	}, []string{"operation", "result"})
	registryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aa_registry_request_duration_seconds",
		Help:    "Длительность запросов к реестру схем.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	schemaDiffTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aa_schema_diff_total",
		Help: "Общее количество сравнений схем.",
	}, []string{"result"})
)

// SchemaRegistry — операции реестра, кроме чтения тела.
type SchemaRegistry interface {
	SchemaURL(id, version string) string
	Owns(uri string) bool
	Create(ctx context.Context, id, version string, body json.RawMessage) (string, json.RawMessage, error)
}

// SchemaDiffer — структурный компаратор схем.
type SchemaDiffer interface {
	Diff(ctx context.Context, source, destination []byte) (*schemadiff.Result, error)
}

// invalidator — fetcher с кэшем, который нужно сбросить после записи.
type invalidator interface {
	Invalidate(ctx context.Context, url string) error
}

// CreateSchemaRequest — запрос на создание схемы.
type CreateSchemaRequest struct {
	ExperimentID string          `json:"experimentId"`
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Private      *bool           `json:"private,omitempty"`
	TeamRef      string          `json:"teamRef,omitempty"`
	Schema       json.RawMessage `json:"schema"`
}

// SchemaService — сервис схем.
type SchemaService struct {
	listing  *ListingService
	registry SchemaRegistry
	fetcher  registry.Fetcher
	differ   SchemaDiffer
	logger   *slog.Logger
}

// NewSchemaService создаёт сервис схем.
// fetcher — чтение тел схем (клиент реестра или кэширующая обёртка).
func NewSchemaService(
	listing *ListingService,
	reg SchemaRegistry,
	fetcher registry.Fetcher,
	differ SchemaDiffer,
	logger *slog.Logger,
) *SchemaService {
	return &SchemaService{
		listing:  listing,
		registry: reg,
		fetcher:  fetcher,
		differ:   differ,
		logger:   logger.With(slog.String("component", "schema_service")),
	}
}

// Create сохраняет тело схемы в реестре и создаёт локальные метаданные в статусе Draft.
// Если реестр принял схему, а сохранение метаданных не удалось, схема
// остаётся в реестре, ошибка возвращается вызывающему.
func (s *SchemaService) Create(ctx context.Context, caller Caller, req CreateSchemaRequest) (model.Document, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	// id и служебные поля назначает ListingService.prepare
	draft := model.SchemaRecord{
		ExperimentID: req.ExperimentID,
		Name:         req.Name,
		Version:      req.Version,
		Status:       model.SchemaStatusDraft,
		TeamRef:      req.TeamRef,
	}
	body := draft.Document()
	if req.Private != nil {
		body[model.FieldPrivate] = *req.Private
	} else {
		delete(body, model.FieldPrivate)
	}
	for _, f := range []string{model.FieldID, model.FieldOwner, model.FieldCreated, model.FieldModified, model.FieldURL} {
		delete(body, f)
	}

	doc, err := s.listing.prepare(caller, body)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rctx, span := tracer.Start(ctx, "registry.Create")
	span.SetAttributes(attribute.String("id", doc.ID()), attribute.String("version", req.Version))
	url, _, err := s.registry.Create(rctx, doc.ID(), req.Version, req.Schema)
	span.End()
	registryDuration.WithLabelValues("create").Observe(time.Since(start).Seconds())
	if err != nil {
		registryRequestsTotal.WithLabelValues("create", "error").Inc()
		s.logger.Error("Реестр не принял схему",
			slog.String("id", doc.ID()),
			slog.String("name", req.Name),
			slog.String("version", req.Version),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: создание схемы в реестре: %v", ErrUpstreamUnavailable, err)
	}
	registryRequestsTotal.WithLabelValues("create", "ok").Inc()

	if inv, ok := s.fetcher.(invalidator); ok {
		if err := inv.Invalidate(ctx, url); err != nil {
			s.logger.Warn("Не удалось сбросить кэш схемы",
				slog.String("url", url),
				slog.String("error", err.Error()),
			)
		}
	}

	doc[model.FieldURL] = url
	stored, err := s.listing.insert(ctx, ResourceSchemas, doc)
	if err != nil {
		s.logger.Warn("Схема сохранена в реестре без локальных метаданных",
			slog.String("id", doc.ID()),
			slog.String("url", url),
		)
		return nil, err
	}
	return stored, nil
}

func validateCreate(req CreateSchemaRequest) error {
	switch {
	case req.Name == "":
		return fmt.Errorf("%w: name обязательно", ErrValidation)
	case req.Version == "":
		return fmt.Errorf("%w: version обязательно", ErrValidation)
	case len(req.Schema) == 0:
		return fmt.Errorf("%w: schema обязательно", ErrValidation)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(req.Schema, &obj); err != nil || obj == nil {
		return fmt.Errorf("%w: schema должно быть JSON-объектом", ErrValidation)
	}
	return nil
}

// Detail возвращает метаданные схемы вместе с телом из реестра
// (без служебных полей реестра) и ссылками baseSchema/reference.
func (s *SchemaService) Detail(ctx context.Context, caller Caller, id string) (model.Document, error) {
	doc, err := s.listing.Get(ctx, caller, ResourceSchemas, id)
	if err != nil {
		return nil, err
	}

	url := doc.String(model.FieldURL)
	if url == "" {
		s.logger.Warn("У схемы нет адреса в реестре", slog.String("id", id))
		return nil, ErrNotFound
	}

	body, err := s.fetch(ctx, "detail", url)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: тело схемы %s: %v", ErrUpstreamUnavailable, id, err)
	}

	refs, err := schemaref.Extract(body)
	if err != nil {
		return nil, fmt.Errorf("%w: тело схемы %s: %v", ErrUpstreamUnavailable, id, err)
	}

	out := doc.Clone()
	out[FieldSchemaBody] = registry.Strip(body, registry.FieldSchema, registry.FieldSelf)
	out[FieldBaseSchema] = refs.BaseSchema
	out[FieldReference] = refs.Reference
	return out, nil
}

// Diff сравнивает тела двух схем по локальным идентификаторам.
// Обе записи разрешаются до обращения к реестру: отсутствие любой — ErrNotFound
// без запросов к реестру. Тела загружаются параллельно, сбой любой загрузки —
// ErrUpstreamUnavailable. Результат компаратора возвращается без изменений.
func (s *SchemaService) Diff(ctx context.Context, caller Caller, srcID, trgID string) (*schemadiff.Result, error) {
	ctx, span := tracer.Start(ctx, "schema.Diff")
	defer span.End()
	span.SetAttributes(attribute.String("src_id", srcID), attribute.String("trg_id", trgID))

	srcURL, err := s.resolveURL(ctx, caller, srcID)
	if err != nil {
		schemaDiffTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}
	trgURL, err := s.resolveURL(ctx, caller, trgID)
	if err != nil {
		schemaDiffTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}

	var src, trg json.RawMessage
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		body, err := s.fetch(gctx, "diff", srcURL)
		src = body
		return err
	})
	g.Go(func() error {
		body, err := s.fetch(gctx, "diff", trgURL)
		trg = body
		return err
	})
	if err := g.Wait(); err != nil {
		schemaDiffTotal.WithLabelValues("upstream_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "registry fetch failed")
		s.logger.Error("Не удалось загрузить схемы для сравнения",
			slog.String("src_id", srcID),
			slog.String("trg_id", trgID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: загрузка схем: %v", ErrUpstreamUnavailable, err)
	}

	result, err := s.differ.Diff(ctx,
		registry.Strip(src, registry.FieldSchema, registry.FieldSelf),
		registry.Strip(trg, registry.FieldSchema, registry.FieldSelf),
	)
	if err != nil {
		schemaDiffTotal.WithLabelValues("diff_error").Inc()
		s.logger.Error("Ошибка сравнения схем",
			slog.String("src_id", srcID),
			slog.String("trg_id", trgID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: сравнение схем: %v", ErrUpstreamUnavailable, err)
	}

	schemaDiffTotal.WithLabelValues("ok").Inc()
	return result, nil
}

// resolveURL разрешает локальный идентификатор схемы в адрес реестра.
func (s *SchemaService) resolveURL(ctx context.Context, caller Caller, id string) (string, error) {
	doc, err := s.listing.Get(ctx, caller, ResourceSchemas, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Info("Схема для сравнения не найдена", slog.String("id", id))
		}
		return "", err
	}
	url := doc.String(model.FieldURL)
	if url == "" {
		s.logger.Warn("У схемы нет адреса в реестре", slog.String("id", id))
		return "", ErrNotFound
	}
	return url, nil
}

// Fetch возвращает тело схемы из реестра по id/version без служебных полей.
func (s *SchemaService) Fetch(ctx context.Context, id, version string) (json.RawMessage, error) {
	url := s.registry.SchemaURL(id, version)
	body, err := s.fetch(ctx, "fetch", url)
	if err != nil {
		return nil, classifyRegistryError(err, url)
	}
	return registry.Strip(body, registry.FieldSchema, registry.FieldSelf), nil
}

// FetchByURI возвращает тело схемы по полному адресу без изменений.
// Принимаются только адреса внутри настроенного реестра.
func (s *SchemaService) FetchByURI(ctx context.Context, uri string) (json.RawMessage, error) {
	if !s.registry.Owns(uri) {
		return nil, fmt.Errorf("%w: uri вне реестра схем", ErrValidation)
	}
	body, err := s.fetch(ctx, "fetch_uri", uri)
	if err != nil {
		return nil, classifyRegistryError(err, uri)
	}
	return body, nil
}

func classifyRegistryError(err error, url string) error {
	if errors.Is(err, registry.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, url, err)
}

// fetch загружает тело схемы с трассировкой и метриками.
func (s *SchemaService) fetch(ctx context.Context, operation, url string) (json.RawMessage, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "registry.Get")
	defer span.End()
	span.SetAttributes(attribute.String("url", url), attribute.String("operation", operation))

	body, err := s.fetcher.Get(ctx, url)
	registryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		result := "error"
		if errors.Is(err, registry.ErrNotFound) {
			result = "not_found"
		}
		registryRequestsTotal.WithLabelValues(operation, result).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		s.logger.Warn("Схема не получена из реестра",
			slog.String("operation", operation),
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	registryRequestsTotal.WithLabelValues(operation, "ok").Inc()
	return body, nil
}
