// Пакет tracing — настройка OpenTelemetry TracerProvider.
// Экспортер none — no-op провайдер без накладных расходов,
// otlp — OTLP/HTTP коллектор.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Экспортеры трассировки.
const (
	ExporterNone = "none"
	ExporterOTLP = "otlp"
)

// Config — параметры трассировки.
type Config struct {
	// Exporter — none или otlp.
	Exporter string
	// OTLPEndpoint — host:port OTLP/HTTP коллектора.
	OTLPEndpoint string
	// SampleRate — доля сэмплируемых трасс (0..1].
	SampleRate float64
	// ServiceName — service.name в ресурсе.
	ServiceName string
	// ServiceVersion — service.version в ресурсе.
	ServiceVersion string
}

// Provider управляет TracerProvider.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewProvider создаёт провайдер и устанавливает его глобальным.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	switch cfg.Exporter {
	case ExporterNone, "":
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return &Provider{tracer: tp.Tracer(cfg.ServiceName)}, nil
	case ExporterOTLP:
	default:
		return nil, fmt.Errorf("неподдерживаемый экспортер трассировки: %s", cfg.Exporter)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("создание OTLP экспортера: %w", err)
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRate))),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return &Provider{provider: tp, tracer: tp.Tracer(cfg.ServiceName)}, nil
}

// Tracer возвращает трейсер сервиса. Безопасен и при выключенной трассировке.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Enabled — включена ли трассировка.
func (p *Provider) Enabled() bool {
	return p.provider != nil
}

// Shutdown выгружает накопленные спаны и останавливает провайдер.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}
