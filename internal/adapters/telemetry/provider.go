package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/weave/internal/core/ports"
)

// OTelTracer implements ports.Tracer on an OpenTelemetry SDK provider whose
// only span processor is a Bridge to the active renderer.
type OTelTracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	bridge   *Bridge
}

var _ ports.Tracer = (*OTelTracer)(nil)

// NewOTelTracer creates a tracer with the given instrumentation name.
func NewOTelTracer(name string) *OTelTracer {
	bridge := NewBridge(nil)
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(bridge))
	return &OTelTracer{
		tracer:   provider.Tracer(name),
		provider: provider,
		bridge:   bridge,
	}
}

// WithRenderer routes span events and task output to r.
func (t *OTelTracer) WithRenderer(r ports.Renderer) *OTelTracer {
	t.bridge.SetRenderer(r)
	return t
}

// Shutdown flushes and stops the provider.
func (t *OTelTracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

// Start creates a new span. Output written to it reaches the renderer in
// batches; the last batch is delivered before the span completes.
func (t *OTelTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, span := t.tracer.Start(ctx, name)
	s := &OTelSpan{span: span}
	for k, v := range cfg.Attributes {
		s.SetAttribute(k, v)
	}

	if r := t.bridge.Renderer(); r != nil {
		spanID := span.SpanContext().SpanID().String()
		s.batcher = NewBatchProcessor(0, 0, func(data []byte) {
			r.OnTaskLog(spanID, data)
		})
	}
	return ctx, s
}

// EmitPlan announces the tasks of command to the renderer and records them
// on the current span.
func (t *OTelTracer) EmitPlan(ctx context.Context, command string, taskNames []string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("plan_emitted", trace.WithAttributes(
			attribute.String("command", command),
			attribute.StringSlice("tasks", taskNames),
		))
	}

	if r := t.bridge.Renderer(); r != nil {
		r.OnPlanEmit(command, taskNames)
	}
}

// OTelSpan implements ports.Span.
type OTelSpan struct {
	span    trace.Span
	batcher *BatchProcessor
}

// End flushes pending output and completes the span.
func (s *OTelSpan) End() {
	if s.batcher != nil {
		_ = s.batcher.Close()
	}
	s.span.End()
}

// RecordError records err and marks the span failed.
func (s *OTelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttribute adds a key-value pair to the span.
func (s *OTelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case []string:
		s.span.SetAttributes(attribute.StringSlice(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// Write forwards p to the renderer, or records it as a span event when no
// renderer is attached.
func (s *OTelSpan) Write(p []byte) (int, error) {
	if s.batcher != nil {
		return s.batcher.Write(p)
	}
	s.span.AddEvent("log", trace.WithAttributes(attribute.String("message", string(p))))
	return len(p), nil
}
