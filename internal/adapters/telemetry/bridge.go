package telemetry

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/weave/internal/core/ports"
)

// Bridge implements sdktrace.SpanProcessor and forwards span lifecycles to a
// renderer. The renderer can be swapped between commands.
type Bridge struct {
	mu       sync.RWMutex
	renderer ports.Renderer
}

var _ sdktrace.SpanProcessor = (*Bridge)(nil)

// NewBridge returns a new Bridge. renderer may be nil.
func NewBridge(renderer ports.Renderer) *Bridge {
	return &Bridge{renderer: renderer}
}

// SetRenderer replaces the renderer that receives span events.
func (b *Bridge) SetRenderer(r ports.Renderer) {
	b.mu.Lock()
	b.renderer = r
	b.mu.Unlock()
}

// Renderer returns the current renderer, or nil.
func (b *Bridge) Renderer() ports.Renderer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.renderer
}

// OnStart is called when a span starts.
func (b *Bridge) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	r := b.Renderer()
	if r == nil {
		return
	}

	sc := s.SpanContext()
	if !sc.IsValid() {
		return
	}

	var parentID string
	if parentSpan := trace.SpanFromContext(parent); parentSpan.SpanContext().IsValid() {
		parentID = parentSpan.SpanContext().SpanID().String()
	}

	r.OnTaskStart(sc.SpanID().String(), parentID, s.Name(), s.StartTime())
}

// OnEnd is called when a span ends.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	r := b.Renderer()
	if r == nil {
		return
	}

	sc := s.SpanContext()
	if !sc.IsValid() {
		return
	}

	var err error
	if s.Status().Code == codes.Error {
		desc := s.Status().Description
		if desc == "" {
			desc = "task failed"
		}
		err = errors.New(desc)
	}

	r.OnTaskComplete(sc.SpanID().String(), s.EndTime(), err)
}

// ForceFlush does nothing.
func (b *Bridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *Bridge) Shutdown(_ context.Context) error {
	return nil
}
