// Пакет config — загрузка и валидация конфигурации api-api
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/digiglu/api-api/internal/registry"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации api-api.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- PostgreSQL (документное хранилище) ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- JWT ---

	// URL JWKS endpoint для проверки подписи токенов
	JWTJWKSURL string
	// Ожидаемый issuer (пустая строка — не проверяется)
	JWTIssuer           string
	JWKSClientTimeout   time.Duration
	JWKSRefreshInterval time.Duration
	JWTLeeway           time.Duration

	// --- Identity service ---

	// Базовый URL identity service: GET {IdentityURL}/{callerId}/organisation
	IdentityURL        string
	IdentityTimeout    time.Duration
	IdentityHealthPath string
	// Размер и TTL кэша членства в командах
	TeamCacheSize int
	TeamCacheTTL  time.Duration

	// --- Schema registry ---

	RegistryURL        string
	RegistryVendor     string
	RegistryReadKey    string
	RegistryWriteKey   string
	RegistryTimeout    time.Duration
	RegistryHealthPath string

	// --- Redis (опциональный кэш тел схем) ---

	// Адрес Redis (пустая строка — кэш отключён)
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SchemaCacheTTL time.Duration

	// --- Политика записей ---

	// Значение private для новых записей, если клиент его не указал
	DefaultPrivate bool

	// Таймаут загрузки OpenAPI-документов (/apis)
	APIDocTimeout time.Duration

	// --- Tracing ---

	// Экспортер трассировки: none, otlp
	TracingExporter   string
	OTLPEndpoint      string
	TracingSampleRate float64

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration
	DephealthIsEntry       bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
//
//nolint:cyclop,funlen // последовательная загрузка переменных
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	cfg.Port, err = getEnvInt("AA_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("AA_PORT: %w", err)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("AA_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("AA_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("AA_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("AA_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	if cfg.HTTPReadTimeout, err = getEnvDuration("AA_HTTP_READ_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("AA_HTTP_READ_TIMEOUT: %w", err)
	}
	if cfg.HTTPWriteTimeout, err = getEnvDuration("AA_HTTP_WRITE_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("AA_HTTP_WRITE_TIMEOUT: %w", err)
	}
	if cfg.HTTPIdleTimeout, err = getEnvDuration("AA_HTTP_IDLE_TIMEOUT", 120*time.Second); err != nil {
		return nil, fmt.Errorf("AA_HTTP_IDLE_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("AA_SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return nil, fmt.Errorf("AA_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired("AA_DB_HOST"); err != nil {
		return nil, err
	}
	if cfg.DBPort, err = getEnvInt("AA_DB_PORT", 5432); err != nil {
		return nil, fmt.Errorf("AA_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("AA_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired("AA_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("AA_DB_PASSWORD"); err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("AA_DB_SSL_MODE", "disable")

	// --- JWT ---

	if cfg.JWTJWKSURL, err = getEnvRequired("AA_JWT_JWKS_URL"); err != nil {
		return nil, err
	}
	cfg.JWTIssuer = getEnvDefault("AA_JWT_ISSUER", "")
	if cfg.JWKSClientTimeout, err = getEnvPositiveDuration("AA_JWKS_CLIENT_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("AA_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	if cfg.JWKSRefreshInterval, err = getEnvPositiveDuration("AA_JWKS_REFRESH_INTERVAL", 15*time.Second); err != nil {
		return nil, fmt.Errorf("AA_JWKS_REFRESH_INTERVAL: %w", err)
	}
	if cfg.JWTLeeway, err = getEnvDuration("AA_JWT_LEEWAY", 5*time.Second); err != nil {
		return nil, fmt.Errorf("AA_JWT_LEEWAY: %w", err)
	}

	// --- Identity service ---

	if cfg.IdentityURL, err = getEnvURL("AA_IDENTITY_URL"); err != nil {
		return nil, err
	}
	if cfg.IdentityTimeout, err = getEnvPositiveDuration("AA_IDENTITY_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("AA_IDENTITY_TIMEOUT: %w", err)
	}
	cfg.IdentityHealthPath = getEnvDefault("AA_IDENTITY_HEALTH_PATH", "/health")
	if cfg.TeamCacheSize, err = getEnvInt("AA_TEAM_CACHE_SIZE", 1000); err != nil {
		return nil, fmt.Errorf("AA_TEAM_CACHE_SIZE: %w", err)
	}
	if cfg.TeamCacheSize < 1 {
		return nil, fmt.Errorf("AA_TEAM_CACHE_SIZE: значение должно быть > 0")
	}
	if cfg.TeamCacheTTL, err = getEnvPositiveDuration("AA_TEAM_CACHE_TTL", 30*time.Second); err != nil {
		return nil, fmt.Errorf("AA_TEAM_CACHE_TTL: %w", err)
	}

	// --- Schema registry ---

	if cfg.RegistryURL, err = getEnvURL("AA_REGISTRY_URL"); err != nil {
		return nil, err
	}
	cfg.RegistryVendor = getEnvDefault("AA_REGISTRY_VENDOR", "digiglu")
	cfg.RegistryReadKey = getEnvDefault("AA_REGISTRY_READ_KEY", "")
	cfg.RegistryWriteKey = getEnvDefault("AA_REGISTRY_WRITE_KEY", "")
	if cfg.RegistryTimeout, err = getEnvPositiveDuration("AA_REGISTRY_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("AA_REGISTRY_TIMEOUT: %w", err)
	}
	cfg.RegistryHealthPath = getEnvDefault("AA_REGISTRY_HEALTH_PATH", "/api/meta/health")

	// --- Redis ---

	cfg.RedisAddr = getEnvDefault("AA_REDIS_ADDR", "")
	cfg.RedisPassword = getEnvDefault("AA_REDIS_PASSWORD", "")
	if cfg.RedisDB, err = getEnvInt("AA_REDIS_DB", 0); err != nil {
		return nil, fmt.Errorf("AA_REDIS_DB: %w", err)
	}
	if cfg.SchemaCacheTTL, err = getEnvPositiveDuration("AA_SCHEMA_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, fmt.Errorf("AA_SCHEMA_CACHE_TTL: %w", err)
	}

	// --- Политика записей ---

	if cfg.DefaultPrivate, err = getEnvBool("AA_DEFAULT_PRIVATE", true); err != nil {
		return nil, fmt.Errorf("AA_DEFAULT_PRIVATE: %w", err)
	}
	if cfg.APIDocTimeout, err = getEnvPositiveDuration("AA_APIDOC_TIMEOUT", 15*time.Second); err != nil {
		return nil, fmt.Errorf("AA_APIDOC_TIMEOUT: %w", err)
	}

	// --- Tracing ---

	cfg.TracingExporter = getEnvDefault("AA_TRACING_EXPORTER", "none")
	if cfg.TracingExporter != "none" && cfg.TracingExporter != "otlp" {
		return nil, fmt.Errorf("AA_TRACING_EXPORTER: недопустимое значение %q, допустимые: none, otlp", cfg.TracingExporter)
	}
	cfg.OTLPEndpoint = getEnvDefault("AA_OTLP_ENDPOINT", "localhost:4318")
	if cfg.TracingSampleRate, err = getEnvFloat("AA_TRACING_SAMPLE_RATE", 1.0); err != nil {
		return nil, fmt.Errorf("AA_TRACING_SAMPLE_RATE: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("AA_DEPHEALTH_GROUP", "api-api")
	if cfg.DephealthCheckInterval, err = getEnvPositiveDuration("AA_DEPHEALTH_CHECK_INTERVAL", 15*time.Second); err != nil {
		return nil, fmt.Errorf("AA_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	if cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false); err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов метрик).
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.User(c.DBUser),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// RegistryConfig возвращает явный объект конфигурации клиента реестра схем.
// Ключи реестра передаются в каждый вызов через этот объект.
func (c *Config) RegistryConfig() registry.Config {
	return registry.Config{
		BaseURL:  c.RegistryURL,
		Vendor:   c.RegistryVendor,
		ReadKey:  c.RegistryReadKey,
		WriteKey: c.RegistryWriteKey,
		Timeout:  c.RegistryTimeout,
	}
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvURL возвращает обязательный абсолютный URL без trailing slash.
func getEnvURL(key string) (string, error) {
	val, err := getEnvRequired(key)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(val)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%s: некорректный URL %q", key, val)
	}
	return strings.TrimRight(val, "/"), nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvFloat возвращает число с плавающей точкой из переменной окружения.
func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное число: %q", val)
	}
	return f, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvPositiveDuration — как getEnvDuration, но значение должно быть > 0.
// Используется для таймаутов исходящих вызовов: нулевой таймаут означал бы
// бесконечное ожидание.
func getEnvPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getEnvDuration(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
