// Package trace wires OpenTelemetry spans around analysis runs. Spans are
// written to a stdout exporter when tracing is enabled and are no-ops
// otherwise.
package trace

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/dvloznov/trading-analyzer/internal/config"
)

var (
	mu             sync.RWMutex
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	enabled        bool
)

// Init installs the global tracer provider. With tracing disabled it only
// records that fact. A nil writer means stdout.
func Init(cfg config.TracingConfig, w io.Writer) error {
	mu.Lock()
	defer mu.Unlock()

	enabled = cfg.Enabled
	if !enabled {
		return nil
	}
	if w == nil {
		w = os.Stdout
	}

	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return err
	}

	res := resource.NewSchemaless(semconv.ServiceName(cfg.ServiceName))

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	tracer = otel.Tracer(cfg.ServiceName)
	return nil
}

// Shutdown flushes pending spans.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	if tracerProvider == nil {
		return nil
	}
	err := tracerProvider.Shutdown(ctx)
	tracerProvider = nil
	tracer = nil
	enabled = false
	return err
}

// StartSpan starts a span, or returns the span already in ctx when
// tracing is off.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	mu.RLock()
	t, on := tracer, enabled
	mu.RUnlock()

	if !on || t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Enabled reports whether spans are exported.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// TraceFields returns the ids of the span in ctx.
func TraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}
