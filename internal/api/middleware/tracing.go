// tracing.go — middleware серверных спанов OpenTelemetry.
package middleware

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Tracing возвращает middleware, открывающий серверный спан на каждый запрос.
// Родительский контекст извлекается из заголовков traceparent/tracestate.
// Имя спана строится по нормализованному пути, чтобы не плодить кардинальность.
func Tracing(tracer trace.Tracer) func(http.Handler) http.Handler {
	propagator := otel.GetTextMapPropagator()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			route := normalizePath(r.URL.Path)

			ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", r.Method, route),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("http.route", route),
					attribute.String("url.path", r.URL.Path),
				),
			)
			defer span.End()

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.response.status_code", wrapped.statusCode))
			if wrapped.statusCode >= 500 {
				span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
			}
		})
	}
}
