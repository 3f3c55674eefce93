package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"AA_DB_HOST":      "localhost",
		"AA_DB_NAME":      "apiapi",
		"AA_DB_USER":      "apiapi",
		"AA_DB_PASSWORD":  "secret",
		"AA_JWT_JWKS_URL": "https://keycloak.digiglu.io/realms/digiglu/protocol/openid-connect/certs",
		"AA_IDENTITY_URL": "https://identity.digiglu.io/api/users/",
		"AA_REGISTRY_URL": "https://i-glu.digiglu.io/api/schemas",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 8040 {
		t.Errorf("Port = %d, ожидается 8040", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.IdentityURL != "https://identity.digiglu.io/api/users" {
		t.Errorf("IdentityURL = %q, ожидается без trailing slash", cfg.IdentityURL)
	}
	if cfg.RegistryVendor != "digiglu" {
		t.Errorf("RegistryVendor = %q, ожидается digiglu", cfg.RegistryVendor)
	}
	if cfg.RegistryTimeout != 10*time.Second {
		t.Errorf("RegistryTimeout = %v, ожидается 10s", cfg.RegistryTimeout)
	}
	if !cfg.DefaultPrivate {
		t.Error("DefaultPrivate = false, ожидается true")
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, ожидается пустая строка", cfg.RedisAddr)
	}
	if cfg.TracingExporter != "none" {
		t.Errorf("TracingExporter = %q, ожидается none", cfg.TracingExporter)
	}
	if cfg.TeamCacheTTL != 30*time.Second {
		t.Errorf("TeamCacheTTL = %v, ожидается 30s", cfg.TeamCacheTTL)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	envs := minimalEnvs()
	envs["AA_PORT"] = "8045"
	envs["AA_LOG_LEVEL"] = "debug"
	envs["AA_LOG_FORMAT"] = "text"
	envs["AA_REGISTRY_VENDOR"] = "acme"
	envs["AA_REGISTRY_READ_KEY"] = "read-key"
	envs["AA_REGISTRY_TIMEOUT"] = "3s"
	envs["AA_DEFAULT_PRIVATE"] = "false"
	envs["AA_REDIS_ADDR"] = "redis:6379"
	envs["AA_TRACING_EXPORTER"] = "otlp"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 8045 {
		t.Errorf("Port = %d, ожидается 8045", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, ожидается Debug", cfg.LogLevel)
	}
	if cfg.DefaultPrivate {
		t.Error("DefaultPrivate = true, ожидается false")
	}

	reg := cfg.RegistryConfig()
	if reg.Vendor != "acme" || reg.ReadKey != "read-key" || reg.Timeout != 3*time.Second {
		t.Errorf("RegistryConfig() = %+v, ожидались значения из окружения", reg)
	}
	if reg.BaseURL != "https://i-glu.digiglu.io/api/schemas" {
		t.Errorf("RegistryConfig().BaseURL = %q", reg.BaseURL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	required := []string{
		"AA_DB_HOST", "AA_DB_NAME", "AA_DB_USER", "AA_DB_PASSWORD",
		"AA_JWT_JWKS_URL", "AA_IDENTITY_URL", "AA_REGISTRY_URL",
	}

	for _, key := range required {
		t.Run(key, func(t *testing.T) {
			envs := minimalEnvs()
			envs[key] = ""
			setEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Fatalf("ожидалась ошибка при отсутствии %s", key)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("ошибка %q не упоминает %s", err.Error(), key)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"некорректный порт", "AA_PORT", "abc"},
		{"некорректный формат логов", "AA_LOG_FORMAT", "xml"},
		{"некорректный уровень", "AA_LOG_LEVEL", "verbose"},
		{"нулевой таймаут реестра", "AA_REGISTRY_TIMEOUT", "0s"},
		{"отрицательный таймаут identity", "AA_IDENTITY_TIMEOUT", "-1s"},
		{"некорректный URL реестра", "AA_REGISTRY_URL", "not-a-url"},
		{"некорректный экспортер", "AA_TRACING_EXPORTER", "jaeger"},
		{"некорректное булево", "AA_DEFAULT_PRIVATE", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envs := minimalEnvs()
			envs[tt.key] = tt.value
			setEnvs(t, envs)

			if _, err := Load(); err == nil {
				t.Errorf("ожидалась ошибка для %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestDatabaseURL_NoPassword(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: 5432, DBName: "apiapi",
		DBUser: "apiapi", DBPassword: "secret", DBSSLMode: "disable",
	}

	got := cfg.DatabaseURL()
	if strings.Contains(got, "secret") {
		t.Errorf("DatabaseURL() = %q содержит пароль", got)
	}
	if got != "postgres://apiapi@db:5432/apiapi?sslmode=disable" {
		t.Errorf("DatabaseURL() = %q", got)
	}
}
