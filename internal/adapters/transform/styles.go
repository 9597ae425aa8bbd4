package transform

import (
	"bytes"
	"context"
	"io"
	"path"
	"path/filepath"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/svg"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

// Media types understood by the minifier.
const (
	mediaCSS  = "text/css"
	mediaHTML = "text/html"
	mediaSVG  = "image/svg+xml"
)

// NewMinifier returns the minifier shared by the style and icon transforms.
func NewMinifier() *minify.M {
	m := minify.New()
	m.AddFunc(mediaCSS, css.Minify)
	m.AddFunc(mediaSVG, svg.Minify)
	m.Add(mediaHTML, &html.Minifier{KeepEndTags: true, KeepQuotes: true, KeepDocumentTags: true})
	return m
}

// StyleCompile turns .less, .scss and .sass sources into CSS through the
// configured style compiler. Plain CSS passes through. Component styles
// emitted on their own stream also minify and carry their own sourcemap.
type StyleCompile struct {
	executor ports.Executor
	minifier *minify.M
}

// NewStyleCompile creates a StyleCompile transformer.
func NewStyleCompile(executor ports.Executor, minifier *minify.M) *StyleCompile {
	return &StyleCompile{executor: executor, minifier: minifier}
}

// Kind implements ports.Transformer.
func (s *StyleCompile) Kind() domain.TransformKind { return domain.KindStyleCompile }

// Apply implements ports.Transformer.
func (s *StyleCompile) Apply(ctx context.Context, step domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	return each(ctx, in, func(a *domain.Artifact) ([]*domain.Artifact, error) {
		if !hasExt(a.Path, ".css", ".less", ".scss", ".sass") {
			return passthrough(a)
		}
		source := a.Contents

		c := a.Clone()
		if !hasExt(a.Path, ".css") {
			compiled, err := s.compile(ctx, step.Options, a)
			if err != nil {
				return nil, err
			}
			c.Contents = compiled
			c.Path = withExt(a.Path, ".css")
			// The compiler's output no longer matches the tracked map.
			c.SourceMap = nil
		}
		if step.Options.Minify {
			min, err := s.minifier.Bytes(mediaCSS, c.Contents)
			if err != nil {
				return nil, zerr.With(err, "path", a.Path)
			}
			c.Contents = min
		}
		if !step.Options.Sourcemaps {
			return []*domain.Artifact{c}, nil
		}
		if len(c.SourceMap) == 0 {
			c.SourceMap = identityMap(a.Path, source)
		}
		c.Tracked = true
		return writeMap(c, step.Options)
	})
}

// compile runs the style compiler with the source on stdin, from the
// directory of the source so that relative imports resolve.
func (s *StyleCompile) compile(ctx context.Context, opts domain.StepOptions, a *domain.Artifact) ([]byte, error) {
	if len(opts.Command) == 0 {
		return nil, domain.ConfigError(domain.ErrMissingSetting, "setting", "styleCompiler")
	}
	var stdout, stderr bytes.Buffer
	inv := ports.Invocation{
		Args:  opts.Command,
		Dir:   filepath.Join(opts.Root, filepath.FromSlash(path.Dir(a.Path))),
		Env:   opts.Context,
		Stdin: bytes.NewReader(a.Contents),
	}
	if err := s.executor.Execute(ctx, inv, &stdout, io.MultiWriter(&stderr, ports.OutputFrom(ctx))); err != nil {
		err = zerr.With(zerr.Wrap(err, "style compiler failed"), "path", a.Path)
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			err = zerr.With(err, "output", string(msg))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// StyleMinify compresses CSS.
type StyleMinify struct {
	minifier *minify.M
}

// NewStyleMinify creates a StyleMinify transformer.
func NewStyleMinify(minifier *minify.M) *StyleMinify {
	return &StyleMinify{minifier: minifier}
}

// Kind implements ports.Transformer.
func (s *StyleMinify) Kind() domain.TransformKind { return domain.KindStyleMinify }

// Apply implements ports.Transformer.
func (s *StyleMinify) Apply(ctx context.Context, _ domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	return each(ctx, in, func(a *domain.Artifact) ([]*domain.Artifact, error) {
		if !hasExt(a.Path, ".css") {
			return passthrough(a)
		}
		min, err := s.minifier.Bytes(mediaCSS, a.Contents)
		if err != nil {
			return nil, zerr.With(err, "path", a.Path)
		}
		c := a.Clone()
		c.Contents = min
		if c.Tracked && len(c.SourceMap) == 0 {
			c.SourceMap = identityMap(a.Path, a.Contents)
		}
		return []*domain.Artifact{c}, nil
	})
}
