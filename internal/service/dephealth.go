// dephealth.go — мониторинг зависимостей через topologymetrics SDK.
//
// api-api мониторит:
//   - PostgreSQL — SQL checker через существующий pgxpool (critical)
//   - реестр схем — HTTP checker (critical)
//   - identity service — HTTP checker (critical)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPDependency — HTTP-зависимость для мониторинга.
type HTTPDependency struct {
	// Name — имя зависимости в метриках.
	Name string
	// URL — базовый URL сервиса.
	URL string
	// HealthPath — путь health endpoint.
	HealthPath string
}

// DephealthConfig — параметры мониторинга зависимостей.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения.
	ServiceID string
	Group     string
	// DB — *sql.DB поверх pgxpool (stdlib.OpenDBFromPool).
	DB *sql.DB
	// PGConnURL — URL PostgreSQL без пароля (для лейблов).
	PGConnURL     string
	HTTP          []HTTPDependency
	CheckInterval time.Duration
	// IsEntry — лейбл isentry=yes для всех зависимостей.
	IsEntry bool
	// Registerer — Prometheus registerer (nil — глобальный).
	Registerer prometheus.Registerer
}

// DephealthService — сервис мониторинга зависимостей.
type DephealthService struct {
	dh     *dephealth.DepHealth
	names  []string
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	common := []dephealth.DependencyOption{
		dephealth.CheckInterval(cfg.CheckInterval),
		dephealth.Critical(true),
	}
	if cfg.IsEntry {
		common = append(common, dephealth.WithLabel("isentry", "yes"))
	}

	pgOpts := append([]dephealth.DependencyOption{dephealth.FromURL(cfg.PGConnURL)}, common...)

	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(cfg.DB)), pgOpts...),
	}
	names := []string{"postgresql"}

	for _, dep := range cfg.HTTP {
		depOpts := append([]dephealth.DependencyOption{
			dephealth.FromURL(dep.URL),
			dephealth.WithHTTPHealthPath(dep.HealthPath),
		}, common...)
		if parsed, err := url.Parse(dep.URL); err == nil && parsed.Scheme == "https" {
			depOpts = append(depOpts, dephealth.WithHTTPTLSSkipVerify(false))
		}
		opts = append(opts, dephealth.HTTP(dep.Name, depOpts...))
		names = append(names, dep.Name)
	}

	if cfg.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(cfg.Registerer))
	}

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		names:  names,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен", slog.Any("dependencies", ds.names))
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}
