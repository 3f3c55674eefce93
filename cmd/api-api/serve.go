package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/digiglu/api-api/internal/api/handlers"
	"github.com/digiglu/api-api/internal/api/middleware"
	"github.com/digiglu/api-api/internal/config"
	"github.com/digiglu/api-api/internal/database"
	"github.com/digiglu/api-api/internal/identity"
	"github.com/digiglu/api-api/internal/registry"
	"github.com/digiglu/api-api/internal/repository"
	"github.com/digiglu/api-api/internal/schemadiff"
	"github.com/digiglu/api-api/internal/server"
	"github.com/digiglu/api-api/internal/service"
	"github.com/digiglu/api-api/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP-сервер",
	RunE:  runServe,
}

//nolint:funlen // последовательная сборка зависимостей
func runServe(cmd *cobra.Command, _ []string) error {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("загрузка конфигурации: %w", err)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("api-api запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("AA_DEPHEALTH_GROUP") == "" {
		logger.Warn("AA_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// 3. Трассировка
	tp, err := tracing.NewProvider(ctx, tracing.Config{
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TracingSampleRate,
		ServiceName:    "api-api",
		ServiceVersion: config.Version,
	})
	if err != nil {
		return fmt.Errorf("инициализация трассировки: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Ошибка остановки трассировки", slog.String("error", err.Error()))
		}
	}()

	// 4. Миграции и подключение к PostgreSQL
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		return fmt.Errorf("миграции БД: %w", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("подключение к PostgreSQL: %w", err)
	}
	defer pool.Close()

	// Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Внешние клиенты
	identityClient := identity.New(cfg.IdentityURL, cfg.IdentityTimeout, logger)
	registryClient := registry.New(cfg.RegistryConfig(), logger)

	var fetcher registry.Fetcher = registryClient
	if cfg.RedisAddr != "" {
		redisClient, err := registry.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("Redis недоступен, кэш тел схем отключён",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
		} else {
			defer redisClient.Close()
			fetcher = registry.NewCachedFetcher(registryClient, redisClient, cfg.SchemaCacheTTL, logger)
			logger.Info("Кэш тел схем включён",
				slog.String("addr", cfg.RedisAddr),
				slog.Duration("ttl", cfg.SchemaCacheTTL),
			)
		}
	}

	// 6. Repository и сервисы
	docRepo := repository.NewDocumentRepository(pool)
	teamCache := service.NewTeamCache(cfg.TeamCacheSize, cfg.TeamCacheTTL)
	visibilitySvc := service.NewVisibilityService(identityClient, teamCache, logger)
	listingSvc := service.NewListingService(docRepo, visibilitySvc, cfg.DefaultPrivate, logger)
	schemaSvc := service.NewSchemaService(listingSvc, registryClient, fetcher, schemadiff.New(), logger)
	apidocSvc := service.NewAPIDocService(cfg.APIDocTimeout, logger)

	// 7. Health и API handlers
	healthHandler := handlers.NewHealthHandler(
		database.NewReadinessChecker(pool),
		middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, 5*time.Second),
	)
	apiHandler := handlers.NewAPIHandler(healthHandler, listingSvc, schemaSvc, apidocSvc, logger)

	// 8. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWTIssuer,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		return fmt.Errorf("создание JWT middleware: %w", err)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 9. topologymetrics — мониторинг PostgreSQL, реестра и identity service
	dephealthSvc, err := service.NewDephealthService(service.DephealthConfig{
		ServiceID: "api-api",
		Group:     cfg.DephealthGroup,
		DB:        pgDB,
		PGConnURL: cfg.DatabaseURL(),
		HTTP: []service.HTTPDependency{
			{Name: "schema-registry", URL: cfg.RegistryURL, HealthPath: cfg.RegistryHealthPath},
			{Name: "identity", URL: cfg.IdentityURL, HealthPath: cfg.IdentityHealthPath},
		},
		CheckInterval: cfg.DephealthCheckInterval,
		IsEntry:       cfg.DephealthIsEntry,
	}, logger)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else if err := dephealthSvc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
	} else {
		defer dephealthSvc.Stop()
	}

	// 10. HTTP-сервер: metrics → tracing → logging → JWT (кроме health и metrics)
	srv := server.New(cfg, logger, apiHandler,
		middleware.MetricsMiddleware(),
		middleware.Tracing(tp.Tracer()),
		middleware.RequestLogger(logger),
		server.JWTAuthWithExclusions(jwtAuth.Middleware(), "/health/", "/metrics"),
	)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("сервер завершился с ошибкой: %w", err)
	}

	logger.Info("api-api остановлен")
	return nil
}
