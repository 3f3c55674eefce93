package database

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/digiglu/api-api/internal/config"
)

// setupTestDB запускает PostgreSQL в Docker-контейнере через testcontainers
// и возвращает конфигурацию для подключения к нему.
func setupTestDB(t *testing.T) *config.Config {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("apiapi_test"),
		postgres.WithUsername("apiapi"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("AA_DB_HOST", host)
	t.Setenv("AA_DB_PORT", port.Port())
	t.Setenv("AA_DB_NAME", "apiapi_test")
	t.Setenv("AA_DB_USER", "apiapi")
	t.Setenv("AA_DB_PASSWORD", "test-password")
	t.Setenv("AA_JWT_JWKS_URL", "http://localhost:8080/jwks")
	t.Setenv("AA_IDENTITY_URL", "http://localhost:8081/users")
	t.Setenv("AA_REGISTRY_URL", "http://localhost:8082/api/schemas")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// TestMigrate проверяет применение миграций и их идемпотентность.
func TestMigrate(t *testing.T) {
	cfg := setupTestDB(t)
	logger := testLogger()

	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}
	// Повторное применение — ErrNoChange, без ошибки
	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("Повторный Migrate() вернул ошибку: %v", err)
	}

	ctx := context.Background()
	pool, err := Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	var exists bool
	err = pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = 'documents'
		)`).Scan(&exists)
	if err != nil {
		t.Fatalf("Ошибка проверки таблицы documents: %v", err)
	}
	if !exists {
		t.Error("Таблица documents не создана")
	}

	// Документ без id отклоняется ограничением
	_, err = pool.Exec(ctx, `INSERT INTO documents (collection, doc) VALUES ('experiments', '{"name":"x"}')`)
	if err == nil {
		t.Error("документ без id принят")
	}
}

// TestReadinessChecker проверяет ReadinessChecker на живой базе.
func TestReadinessChecker(t *testing.T) {
	cfg := setupTestDB(t)
	ctx := context.Background()

	pool, err := Connect(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	status, msg := NewReadinessChecker(pool).CheckReady()
	if status != "ok" {
		t.Errorf("CheckReady() status = %q, message = %q; ожидали ok", status, msg)
	}
}

func TestMigrateURL(t *testing.T) {
	cfg := &config.Config{
		DBHost: "db", DBPort: 5433, DBName: "api", DBUser: "u", DBPassword: "p@ss", DBSSLMode: "require",
	}
	got := migrateURL(cfg)
	want := "pgx5://u:p%40ss@db:5433/api?sslmode=require"
	if got != want {
		t.Errorf("migrateURL() = %q, ожидалось %q", got, want)
	}
}
