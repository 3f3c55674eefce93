package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apierrors "github.com/digiglu/api-api/internal/api/errors"
	"github.com/digiglu/api-api/internal/api/handlers"
	"github.com/digiglu/api-api/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// denyAll — middleware, отклоняющий любой запрос.
func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.Unauthorized(w, "нет токена")
	})
}

func TestJWTAuthWithExclusions(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := JWTAuthWithExclusions(denyAll, "/health/", "/metrics")(ok)

	tests := []struct {
		path string
		want int
	}{
		{"/health/live", http.StatusOK},
		{"/health/ready", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/experiments", http.StatusUnauthorized},
		{"/schemas/diff", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))
			if rec.Code != tt.want {
				t.Errorf("статус = %d, ожидался %d", rec.Code, tt.want)
			}
		})
	}
}

func TestNewRouter_ProtectedRoutes(t *testing.T) {
	h := handlers.NewAPIHandler(handlers.NewHealthHandler(nil, nil), nil, nil, nil, testLogger())
	router := NewRouter(h, JWTAuthWithExclusions(denyAll, "/health/", "/metrics"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Errorf("/health/live: статус = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/experiments", http.NoBody))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("/experiments: статус = %d, ожидался 401", rec.Code)
	}
}

func TestServer_RunStopsOnContextCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()

	cfg := &config.Config{
		Port:            port,
		HTTPReadTimeout: time.Second,
		ShutdownTimeout: time.Second,
	}
	h := handlers.NewAPIHandler(handlers.NewHealthHandler(nil, nil), nil, nil, nil, testLogger())
	srv := New(cfg, testLogger(), h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() ошибка: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("сервер не остановился после отмены контекста")
	}
}
