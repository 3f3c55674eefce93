// visibility.go — построение предиката видимости записей для вызывающего.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/digiglu/api-api/internal/domain/filter"
)

var tracer = otel.Tracer("github.com/digiglu/api-api/internal/service")

// Caller — идентичность вызывающего.
type Caller struct {
	// ID — subject из JWT.
	ID string
	// Authorization — исходный заголовок Authorization, пересылается в identity service.
	Authorization string
}

// TeamSource — источник членства в командах (identity service).
type TeamSource interface {
	Teams(ctx context.Context, callerID, authorization string) ([]string, error)
}

// VisibilityService строит предикат видимости с учётом команд вызывающего.
type VisibilityService struct {
	teams  TeamSource
	cache  *TeamCache
	logger *slog.Logger
}

// NewVisibilityService создаёт сервис видимости. cache может быть nil.
func NewVisibilityService(teams TeamSource, cache *TeamCache, logger *slog.Logger) *VisibilityService {
	return &VisibilityService{
		teams:  teams,
		cache:  cache,
		logger: logger.With(slog.String("component", "visibility_service")),
	}
}

// Build возвращает предикат видимости для вызывающего.
// Недоступность identity service — ErrUpstreamUnavailable, запрос не продолжается
// с пустым списком команд.
func (s *VisibilityService) Build(ctx context.Context, caller Caller) (filter.Predicate, error) {
	teams, err := s.callerTeams(ctx, caller)
	if err != nil {
		return filter.Predicate{}, err
	}
	return filter.Visibility(caller.ID, teams), nil
}

func (s *VisibilityService) callerTeams(ctx context.Context, caller Caller) ([]string, error) {
	if s.cache != nil {
		if teams, ok := s.cache.Get(caller.ID); ok {
			return teams, nil
		}
	}

	ctx, span := tracer.Start(ctx, "identity.Teams")
	defer span.End()
	span.SetAttributes(attribute.String("caller", caller.ID))

	teams, err := s.teams.Teams(ctx, caller.ID, caller.Authorization)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "identity lookup failed")
		s.logger.Error("Не удалось получить команды вызывающего",
			slog.String("caller", caller.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: команды %s: %v", ErrUpstreamUnavailable, caller.ID, err)
	}

	if s.cache != nil {
		s.cache.Set(caller.ID, teams)
	}
	return teams, nil
}
