// Package telemetry traces guardian sessions with OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// installed is the provider of the running command.
var installed struct {
	sync.RWMutex
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

func install(tp trace.TracerProvider, shutdown func(context.Context) error) {
	installed.Lock()
	installed.provider = tp
	installed.shutdown = shutdown
	installed.Unlock()
	otel.SetTracerProvider(tp)
}

// InitProvider installs the tracer provider for this process and returns
// its shutdown function. Disabled tracing installs a noop provider. extra
// options are appended, e.g. an in-memory span processor in tests.
func InitProvider(ctx context.Context, cfg Config, extra ...sdktrace.TracerProviderOption) (func(context.Context) error, error) {
	if !cfg.Enabled {
		shutdown := func(context.Context) error { return nil }
		install(noop.NewTracerProvider(), shutdown)
		return shutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
		resource.WithProcessRuntimeDescription(),
		resource.WithHost(),
		resource.WithOS(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	}
	if cfg.Endpoint != "" {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
			otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	}

	tp := sdktrace.NewTracerProvider(append(opts, extra...)...)
	install(tp, tp.Shutdown)
	return tp.Shutdown, nil
}

// sampler samples whole sessions: the root command span decides and every
// stage follows its parent.
func sampler(rate float64) sdktrace.Sampler {
	if rate >= 1.0 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

// Shutdown flushes and stops the installed provider.
func Shutdown(ctx context.Context) error {
	installed.RLock()
	shutdown := installed.shutdown
	installed.RUnlock()

	if shutdown == nil {
		return nil
	}
	return shutdown(ctx)
}

// GetTracerProvider returns the installed provider, or a noop one.
func GetTracerProvider() trace.TracerProvider {
	installed.RLock()
	defer installed.RUnlock()

	if installed.provider == nil {
		return noop.NewTracerProvider()
	}
	return installed.provider
}
