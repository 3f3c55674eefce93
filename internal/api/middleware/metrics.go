// metrics.go — Prometheus HTTP метрики api-api.
// Регистрирует метрики: aa_http_requests_total, aa_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aa_http_requests_total",
			Help: "Общее количество HTTP-запросов к api-api",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aa_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к api-api в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет идентификаторы в пути на плейсхолдеры.
// /experiments/e1 → /experiments/{id}
// /registry/schemas/s1/1.0.0 → /registry/schemas/{id}/{version}
// Неизвестные пути сводятся к "other".
func normalizePath(path string) string {
	path = strings.TrimSuffix(path, "/")
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/experiments", "/collections", "/schemas", "/schemas/diff",
		"/registry/schemas", "/apis":
		return path
	}

	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	switch {
	case len(segments) == 2 && (segments[0] == "experiments" || segments[0] == "collections" || segments[0] == "schemas"):
		return "/" + segments[0] + "/{id}"
	case len(segments) == 4 && segments[0] == "registry" && segments[1] == "schemas":
		return "/registry/schemas/{id}/{version}"
	}
	return "other"
}
