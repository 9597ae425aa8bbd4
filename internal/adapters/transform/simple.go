package transform

import (
	"context"
	"path"

	"go.trai.ch/weave/internal/core/domain"
)

// MarkupCopy emits component templates unchanged.
type MarkupCopy struct{}

// Kind implements ports.Transformer.
func (MarkupCopy) Kind() domain.TransformKind { return domain.KindMarkupCopy }

// Apply implements ports.Transformer.
func (MarkupCopy) Apply(ctx context.Context, _ domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	return each(ctx, in, passthrough)
}

// Concat joins the stream, in order, into the single file OutFile.
type Concat struct{}

// Kind implements ports.Transformer.
func (Concat) Kind() domain.TransformKind { return domain.KindConcat }

// Apply implements ports.Transformer.
func (Concat) Apply(ctx context.Context, step domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, nil
	}
	if step.Options.OutFile == "" {
		return nil, domain.ConfigError(domain.ErrMissingSetting, "step", step.ID)
	}
	return concat(in, step.Options.OutFile), nil
}

// Rename gives every artifact the name Name, keeping its directory.
type Rename struct{}

// Kind implements ports.Transformer.
func (Rename) Kind() domain.TransformKind { return domain.KindRename }

// Apply implements ports.Transformer.
func (Rename) Apply(ctx context.Context, step domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	if step.Options.Name == "" {
		return nil, domain.ConfigError(domain.ErrMissingSetting, "step", step.ID)
	}
	return each(ctx, in, func(a *domain.Artifact) ([]*domain.Artifact, error) {
		c := a.Clone()
		c.Path = path.Join(path.Dir(a.Path), step.Options.Name)
		return []*domain.Artifact{c}, nil
	})
}
