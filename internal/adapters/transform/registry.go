// Package transform implements the named transformations applied by pipeline
// steps: transpiling, minifying, style compilation, component inlining,
// sourcemaps, concatenation and icon fonts.
package transform

import (
	"errors"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

// Registry maps step kinds to transformers.
type Registry struct {
	byKind map[domain.TransformKind]ports.Transformer
}

var _ ports.TransformRegistry = (*Registry)(nil)

// NewRegistry creates a Registry holding ts. A later transformer replaces an
// earlier one of the same kind.
func NewRegistry(ts ...ports.Transformer) *Registry {
	r := &Registry{byKind: make(map[domain.TransformKind]ports.Transformer, len(ts))}
	for _, t := range ts {
		r.byKind[t.Kind()] = t
	}
	return r
}

// NewDefaultRegistry creates a Registry holding every built-in transformer.
// External tools run through executor.
func NewDefaultRegistry(executor ports.Executor) *Registry {
	minifier := NewMinifier()
	styles := NewStyleCompile(executor, minifier)
	return NewRegistry(
		Preprocess{},
		RelativePathRewrite{},
		NewInlineTemplateStyle(styles, minifier, nil),
		Transpile{},
		Minify{},
		SourcemapInit{},
		SourcemapWrite{},
		styles,
		MarkupCopy{},
		NewStyleMinify(minifier),
		Concat{},
		Rename{},
		NewIconCSS(minifier, nil),
		NewIconFont(executor),
	)
}

// Lookup implements ports.TransformRegistry.
func (r *Registry) Lookup(kind domain.TransformKind) (ports.Transformer, error) {
	t, ok := r.byKind[kind]
	if !ok {
		return nil, errors.Join(domain.ErrNoTransformer, zerr.With(zerr.New("unknown transform kind"), "kind", kind.String()))
	}
	return t, nil
}

// Kinds returns the registered kinds.
func (r *Registry) Kinds() []domain.TransformKind {
	out := make([]domain.TransformKind, 0, len(r.byKind))
	for k := range r.byKind {
		out = append(out, k)
	}
	return out
}
