// listing.go — листинг, получение и создание записей коллекций
// (эксперименты, коллекции API, метаданные схем).
// Координирует предикат видимости, документное хранилище и пагинацию.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"

	"github.com/digiglu/api-api/internal/domain/filter"
	"github.com/digiglu/api-api/internal/domain/model"
	"github.com/digiglu/api-api/internal/hal"
	"github.com/digiglu/api-api/internal/pagination"
	"github.com/digiglu/api-api/internal/repository"
)

// Prometheus-метрики листинга.
var (
	listTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aa_list_total",
		Help: "Общее количество запросов листинга по ресурсам.",
	}, []string{"resource"})
	listDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aa_list_duration_seconds",
		Help:    "Длительность запросов листинга (identity + хранилище + нарезка).",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource"})
	recordsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aa_records_created_total",
		Help: "Общее количество созданных записей по ресурсам.",
	}, []string{"resource"})
)

// Resource — описание коллекции записей.
type Resource struct {
	// Name — имя ресурса в URL и метриках.
	Name string
	// Collection — коллекция в документном хранилище.
	Collection string
	// PageSize — фиксированный размер страницы.
	PageSize int
}

// Ресурсы api-api.
var (
	ResourceExperiments = Resource{Name: "experiments", Collection: repository.CollectionExperiments, PageSize: pagination.DefaultPageSize}
	ResourceCollections = Resource{Name: "collections", Collection: repository.CollectionCollections, PageSize: pagination.DefaultPageSize}
	ResourceSchemas     = Resource{Name: "schemas", Collection: repository.CollectionSchemas, PageSize: pagination.SchemaPageSize}
)

// ListParams — параметры листинга.
type ListParams struct {
	// Page — номер страницы, начиная с 1.
	Page int
	// Fields — проекция (nil — документы целиком).
	Fields repository.Projection
	// Match — дополнительные условия (например, refId для коллекций).
	Match []filter.Clause
}

// Page — страница записей.
type Page struct {
	State pagination.State
	Items []model.Document
}

// ListingService — сервис записей коллекций.
type ListingService struct {
	repo           repository.DocumentRepository
	visibility     *VisibilityService
	defaultPrivate bool
	logger         *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewListingService создаёт сервис записей.
// defaultPrivate — значение private для новых записей без явного значения.
func NewListingService(
	repo repository.DocumentRepository,
	visibility *VisibilityService,
	defaultPrivate bool,
	logger *slog.Logger,
) *ListingService {
	return &ListingService{
		repo:           repo,
		visibility:     visibility,
		defaultPrivate: defaultPrivate,
		logger:         logger.With(slog.String("component", "listing_service")),
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
	}
}

// List возвращает страницу видимых вызывающему записей ресурса.
// Выборка полная, нарезка страницы выполняется в памяти.
func (s *ListingService) List(ctx context.Context, caller Caller, res Resource, params ListParams) (*Page, error) {
	start := time.Now()
	listTotal.WithLabelValues(res.Name).Inc()

	if params.Page < 1 {
		return nil, fmt.Errorf("%w: %w", ErrValidation, pagination.ErrInvalidPage)
	}

	pred, err := s.visibility.Build(ctx, caller)
	if err != nil {
		return nil, err
	}
	pred = pred.And(params.Match...)

	ctx, span := tracer.Start(ctx, "store.Find")
	span.SetAttributes(attribute.String("collection", res.Collection))
	docs, err := s.repo.Find(ctx, res.Collection, pred, params.Fields)
	span.End()
	if err != nil {
		s.logger.Error("Ошибка выборки записей",
			slog.String("resource", res.Name),
			slog.String("caller", caller.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: выборка %s: %v", ErrUpstreamUnavailable, res.Name, err)
	}

	state, items, err := pagination.Paginate(docs, params.Page, res.PageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	duration := time.Since(start)
	listDuration.WithLabelValues(res.Name).Observe(duration.Seconds())

	s.logger.Debug("Листинг выполнен",
		slog.String("resource", res.Name),
		slog.Int("page", state.Page),
		slog.Int("total", state.TotalRecords),
		slog.Int("returned", len(items)),
		slog.Duration("duration", duration),
	)

	return &Page{State: state, Items: items}, nil
}

// Get возвращает видимую вызывающему запись по id.
// Невидимая запись неотличима от отсутствующей (ErrNotFound).
func (s *ListingService) Get(ctx context.Context, caller Caller, res Resource, id string) (model.Document, error) {
	pred, err := s.visibility.Build(ctx, caller)
	if err != nil {
		return nil, err
	}
	pred = pred.And(filter.ByID(id))

	ctx, span := tracer.Start(ctx, "store.FindOne")
	span.SetAttributes(attribute.String("collection", res.Collection), attribute.String("id", id))
	doc, err := s.repo.FindOne(ctx, res.Collection, pred)
	span.End()
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("Ошибка получения записи",
			slog.String("resource", res.Name),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: получение %s/%s: %v", ErrUpstreamUnavailable, res.Name, id, err)
	}
	return doc, nil
}

// Create сохраняет новую запись ресурса.
// id, owner, created и modified назначаются сервером, private по умолчанию —
// политика конфигурации. Возвращает сохранённый документ.
func (s *ListingService) Create(ctx context.Context, caller Caller, res Resource, body model.Document) (model.Document, error) {
	doc, err := s.prepare(caller, body)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, res, doc)
}

// prepare строит документ новой записи из тела запроса.
func (s *ListingService) prepare(caller Caller, body model.Document) (model.Document, error) {
	doc := body.Clone()
	for _, reserved := range []string{model.FieldInternalID, hal.FieldLinks, hal.FieldActions, hal.FieldEmbedded} {
		delete(doc, reserved)
	}

	if v, ok := doc[model.FieldPrivate]; ok {
		if _, isBool := v.(bool); !isBool {
			return nil, fmt.Errorf("%w: private должно быть boolean", ErrValidation)
		}
	} else {
		doc[model.FieldPrivate] = s.defaultPrivate
	}
	if v, ok := doc[model.FieldTeamRef]; ok {
		if _, isStr := v.(string); !isStr {
			return nil, fmt.Errorf("%w: teamRef должно быть строкой", ErrValidation)
		}
	}

	now := s.now().UnixMilli()
	doc[model.FieldID] = s.newID()
	doc[model.FieldOwner] = caller.ID
	doc[model.FieldCreated] = now
	doc[model.FieldModified] = now
	return doc, nil
}

func (s *ListingService) insert(ctx context.Context, res Resource, doc model.Document) (model.Document, error) {
	ctx, span := tracer.Start(ctx, "store.Insert")
	span.SetAttributes(attribute.String("collection", res.Collection))
	stored, err := s.repo.Insert(ctx, res.Collection, doc)
	span.End()
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		s.logger.Error("Ошибка сохранения записи",
			slog.String("resource", res.Name),
			slog.String("id", doc.ID()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: сохранение %s: %v", ErrUpstreamUnavailable, res.Name, err)
	}

	recordsCreatedTotal.WithLabelValues(res.Name).Inc()
	s.logger.Info("Запись создана",
		slog.String("resource", res.Name),
		slog.String("id", stored.ID()),
		slog.String("owner", stored.String(model.FieldOwner)),
	)
	return stored, nil
}
