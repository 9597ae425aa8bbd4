// Package pipeline streams artifacts through the steps of a selected pipeline.
package pipeline

import (
	"context"
	"errors"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

// Runner executes pipelines. It holds no per-run state and is safe for
// concurrent use.
type Runner struct {
	registry ports.TransformRegistry
	source   ports.ArtifactSource
	sink     ports.ArtifactSink
	tracer   ports.Tracer
}

// NewRunner creates a Runner.
func NewRunner(
	registry ports.TransformRegistry,
	source ports.ArtifactSource,
	sink ports.ArtifactSink,
	tracer ports.Tracer,
) *Runner {
	return &Runner{
		registry: registry,
		source:   source,
		sink:     sink,
		tracer:   tracer,
	}
}

// stream is the set of artifacts flowing between the steps that share one input.
type stream struct {
	sel       *domain.Selection
	artifacts []*domain.Artifact
}

// Run executes p. A step with an input selection writes the current stream to
// p.Dest and starts a new one; the last stream is written when the steps end.
//
// On failure Run returns the ID of the failing step. With AbortOnError nothing
// after the failing step runs and the failing stream is not written.
func (r *Runner) Run(ctx context.Context, p *domain.Pipeline) (string, error) {
	transformers, err := r.resolve(p)
	if err != nil {
		return "", err
	}

	var (
		cur    stream
		failed string
		errs   error
	)

	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return step.ID, err
		}

		if step.Input != nil {
			if cur.sel != nil {
				if err := r.flush(ctx, p, cur); err != nil {
					return step.ID, err
				}
			}
			arts, err := r.source.Read(ctx, p.Root, *step.Input)
			if err != nil {
				return step.ID, r.stepError(p, step, err)
			}
			cur = stream{sel: step.Input, artifacts: arts}
		}

		out, err := r.apply(ctx, p, step, transformers[i], cur.artifacts)
		if err != nil {
			err = r.stepError(p, step, err)
			if p.Policy == domain.AbortOnError {
				return step.ID, err
			}
			if failed == "" {
				failed = step.ID
			}
			errs = errors.Join(errs, err)
			continue
		}
		cur.artifacts = out
	}

	if cur.sel != nil {
		if err := r.flush(ctx, p, cur); err != nil {
			return "", err
		}
	}
	return failed, errs
}

// resolve looks up every transformer before any step runs, so a missing one
// is reported as a configuration error with nothing written.
func (r *Runner) resolve(p *domain.Pipeline) ([]ports.Transformer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out := make([]ports.Transformer, len(p.Steps))
	for i, step := range p.Steps {
		t, err := r.registry.Lookup(step.Kind)
		if err != nil {
			return nil, domain.ConfigError(err, "step", step.ID)
		}
		out[i] = t
	}
	return out, nil
}

func (r *Runner) apply(
	ctx context.Context,
	p *domain.Pipeline,
	step domain.TransformStep,
	t ports.Transformer,
	in []*domain.Artifact,
) ([]*domain.Artifact, error) {
	ctx, span := r.tracer.Start(ctx, step.ID,
		ports.WithAttribute("weave.task", p.Task.String()),
		ports.WithAttribute("weave.step", step.Kind.String()),
	)
	defer span.End()

	span.SetAttribute("weave.artifacts", len(in))
	step.Options.Root = p.Root
	out, err := t.Apply(ports.WithOutput(ctx, span), step, in)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

// flush rebases the stream onto its selection base and writes it.
func (r *Runner) flush(ctx context.Context, p *domain.Pipeline, s stream) error {
	if len(s.artifacts) == 0 {
		return nil
	}
	out := make([]*domain.Artifact, len(s.artifacts))
	for i, a := range s.artifacts {
		c := *a
		c.Path = domain.RewriteOutputPath(a.Path, s.sel.Base)
		out[i] = &c
	}
	if err := r.sink.Write(ctx, p.Root, p.Dest, out); err != nil {
		return zerr.With(zerr.Wrap(err, ""), "task", p.Task.String())
	}
	return nil
}

func (r *Runner) stepError(p *domain.Pipeline, step domain.TransformStep, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	detail := zerr.With(zerr.Wrap(err, ""), "step", step.ID)
	detail = zerr.With(detail, "task", p.Task.String())
	detail = zerr.With(detail, "mode", p.Mode.String())
	return errors.Join(domain.ErrTransformFailed, detail)
}
