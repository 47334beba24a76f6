package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	options "github.com/kart-io/ieum/pkg/options/tracing"
)

func TestOptionsValidate(t *testing.T) {
	valid := func() *options.Options {
		o := options.NewOptions()
		o.Enabled = true
		return o
	}

	tests := []struct {
		name    string
		mutate  func(o *options.Options)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*options.Options) {}},
		{name: "disabled ignores fields", mutate: func(o *options.Options) { o.Enabled = false; o.ServiceName = "" }},
		{name: "missing service name", mutate: func(o *options.Options) { o.ServiceName = "" }, wantErr: true},
		{name: "missing endpoint", mutate: func(o *options.Options) { o.Endpoint = "" }, wantErr: true},
		{name: "stdout needs no endpoint", mutate: func(o *options.Options) { o.ExporterType = options.ExporterStdout; o.Endpoint = "" }},
		{name: "unknown exporter", mutate: func(o *options.Options) { o.ExporterType = "zipkin" }, wantErr: true},
		{name: "ratio out of range", mutate: func(o *options.Options) { o.SamplerType = options.SamplerRatio; o.SamplerRatio = 1.5 }, wantErr: true},
		{name: "non-positive batch timeout", mutate: func(o *options.Options) { o.BatchTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mutate(o)
			errs := o.Validate()
			if tt.wantErr && len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			if !tt.wantErr && len(errs) > 0 {
				t.Fatalf("unexpected validation errors: %v", errs)
			}
		})
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	before := otel.GetTracerProvider()

	p, err := NewProvider(context.Background(), options.NewOptions())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer func() { _ = p.Shutdown(context.Background()) }()

	if p.Enabled() {
		t.Error("expected provider to be disabled")
	}
	if otel.GetTracerProvider() != before {
		t.Error("disabled provider must not replace the global tracer provider")
	}
}

func TestNewProvider_Noop(t *testing.T) {
	opts := options.NewOptions()
	opts.Enabled = true
	opts.ExporterType = options.ExporterNoop
	opts.SamplerType = options.SamplerAlwaysOn

	p, err := NewProvider(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	ctx, span := p.Tracer("test").Start(context.Background(), "op")
	if TraceIDFromContext(ctx) == "" {
		t.Error("expected a trace id inside a sampled span")
	}
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewProvider_Invalid(t *testing.T) {
	opts := options.NewOptions()
	opts.Enabled = true
	opts.ExporterType = "unknown"

	if _, err := NewProvider(context.Background(), opts); err == nil {
		t.Fatal("expected error for invalid options")
	}
}

func TestStartSpanAndRecordError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, span := StartSpan(context.Background(), "test", "ingest")
	span.SetAttributes(String("file", "a.pdf"), Int("chunks", 3), Bool("replace", true))
	RecordError(span, nil)
	RecordError(span, errors.New("boom"))
	span.End()

	if TraceIDFromContext(ctx) == "" {
		t.Error("expected trace id")
	}
	if TraceIDFromContext(context.Background()) != "" {
		t.Error("expected empty trace id without span")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "ingest" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want error", spans[0].Status.Code)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("expected exactly one error event, got %d", len(spans[0].Events))
	}
}
