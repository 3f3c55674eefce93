package tracing

import (
	"context"
	"testing"
)

func TestNewProvider_None(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Exporter: ExporterNone, ServiceName: "api-api"})
	if err != nil {
		t.Fatalf("NewProvider() ошибка: %v", err)
	}
	if p.Enabled() {
		t.Error("Enabled() = true для экспортера none")
	}

	_, span := p.Tracer().Start(context.Background(), "noop")
	if span.SpanContext().IsSampled() {
		t.Error("no-op спан не должен сэмплироваться")
	}
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() ошибка: %v", err)
	}
}

func TestNewProvider_OTLP(t *testing.T) {
	// Экспортер создаётся без соединения с коллектором
	p, err := NewProvider(context.Background(), Config{
		Exporter:     ExporterOTLP,
		OTLPEndpoint: "localhost:4318",
		SampleRate:   0.5,
		ServiceName:  "api-api",
	})
	if err != nil {
		t.Fatalf("NewProvider() ошибка: %v", err)
	}
	if !p.Enabled() {
		t.Error("Enabled() = false для экспортера otlp")
	}
	_ = p.Shutdown(context.Background())
}

func TestNewProvider_Unknown(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Exporter: "jaeger"}); err == nil {
		t.Error("ожидалась ошибка для неизвестного экспортера")
	}
}
