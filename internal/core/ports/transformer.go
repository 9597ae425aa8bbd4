package ports

import (
	"context"

	"go.trai.ch/weave/internal/core/domain"
)

// Transformer is one named source to output transformation. It must not
// touch the file system outside of what its step describes and must not
// mutate the artifacts it receives.
//
//go:generate mockgen -source=transformer.go -destination=mocks/mock_transformer.go -package=mocks
type Transformer interface {
	Kind() domain.TransformKind
	Apply(ctx context.Context, step domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error)
}

// TransformRegistry resolves the transformer of a step kind.
type TransformRegistry interface {
	Lookup(kind domain.TransformKind) (Transformer, error)
}
