package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartCommandSpan creates the root span of a CLI command.
//
//	ctx, span := telemetry.StartCommandSpan(ctx, "run")
//	defer span.End()
func StartCommandSpan(ctx context.Context, cmdName string) (context.Context, trace.Span) {
	ctx, span := GetTracerProvider().Tracer("commands").Start(ctx, "command."+cmdName)
	span.SetAttributes(
		attribute.String("command", cmdName),
		attribute.String("component", "cli"),
	)
	return ctx, span
}

// StartStageSpan creates a span for one pipeline stage, e.g. "audit".
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	ctx, span := GetTracerProvider().Tracer("pipeline").Start(ctx, "stage."+stage)
	span.SetAttributes(
		attribute.String("stage", stage),
		attribute.String("component", "pipeline"),
	)
	return ctx, span
}

// StartConsoleSpan creates a span for one operator console command.
func StartConsoleSpan(ctx context.Context, command string) (context.Context, trace.Span) {
	ctx, span := GetTracerProvider().Tracer("console").Start(ctx, "console."+command)
	span.SetAttributes(
		attribute.String("console.command", command),
		attribute.String("component", "console"),
	)
	return ctx, span
}

// RecordSuccess marks a span as successful with optional result attributes.
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError records an error in a span and sets error status.
// A nil error is a no-op.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Bool("error", true))
}

// End records err, or success when err is nil, and ends the span.
func End(span trace.Span, err error) {
	if err != nil {
		RecordError(span, err)
	} else {
		RecordSuccess(span)
	}
	span.End()
}
