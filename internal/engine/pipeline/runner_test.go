package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/weave/internal/core/ports/mocks"
	"go.trai.ch/weave/internal/engine/pipeline"
	"go.uber.org/mock/gomock"
)

type runnerMocks struct {
	registry *mocks.MockTransformRegistry
	source   *mocks.MockArtifactSource
	sink     *mocks.MockArtifactSink
}

func setupRunner(t *testing.T) (*pipeline.Runner, runnerMocks, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := runnerMocks{
		registry: mocks.NewMockTransformRegistry(ctrl),
		source:   mocks.NewMockArtifactSource(ctrl),
		sink:     mocks.NewMockArtifactSink(ctrl),
	}

	span := mocks.NewMockSpan(ctrl)
	span.EXPECT().End().AnyTimes()
	span.EXPECT().RecordError(gomock.Any()).AnyTimes()
	span.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()

	tracer := mocks.NewMockTracer(ctrl)
	tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, span
		},
	).AnyTimes()

	return pipeline.NewRunner(m.registry, m.source, m.sink, tracer), m, ctrl
}

// suffix is a transformer that appends its step ID to every artifact.
type suffix struct{ kind domain.TransformKind }

func (s suffix) Kind() domain.TransformKind { return s.kind }

func (s suffix) Apply(_ context.Context, step domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	out := make([]*domain.Artifact, len(in))
	for i, a := range in {
		c := a.Clone()
		c.Contents = append(c.Contents, []byte("|"+step.ID)...)
		out[i] = c
	}
	return out, nil
}

type failing struct{ kind domain.TransformKind }

func (f failing) Kind() domain.TransformKind { return f.kind }

func (f failing) Apply(context.Context, domain.TransformStep, []*domain.Artifact) ([]*domain.Artifact, error) {
	return nil, errors.New("syntax error at line 3")
}

func twoStreamPipeline() *domain.Pipeline {
	return &domain.Pipeline{
		Task:   domain.TaskScripts,
		Mode:   domain.ModeLazy,
		Root:   "/project",
		Dest:   "dist/js",
		Policy: domain.AbortOnError,
		Steps: []domain.TransformStep{
			{ID: "preprocess", Kind: domain.KindPreprocess, Input: &domain.Selection{Base: "src", Patterns: []string{"src/**/*.ts"}}},
			{ID: "minify", Kind: domain.KindMinify},
			{ID: "markup-copy", Kind: domain.KindMarkupCopy, Input: &domain.Selection{Base: "src", Patterns: []string{"src/**/*.html"}}},
		},
	}
}

func TestRunner_StreamsInOrder(t *testing.T) {
	r, m, _ := setupRunner(t)
	p := twoStreamPipeline()

	m.registry.EXPECT().Lookup(gomock.Any()).DoAndReturn(func(k domain.TransformKind) (ports.Transformer, error) {
		return suffix{kind: k}, nil
	}).Times(3)

	gomock.InOrder(
		m.source.EXPECT().Read(gomock.Any(), "/project", *p.Steps[0].Input).
			Return([]*domain.Artifact{{Path: "src/app/main.ts", Contents: []byte("a")}}, nil),
		m.sink.EXPECT().Write(gomock.Any(), "/project", "dist/js", gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, arts []*domain.Artifact) error {
				require.Len(t, arts, 1)
				assert.Equal(t, "./app/main.ts", arts[0].Path)
				assert.Equal(t, "a|preprocess|minify", string(arts[0].Contents))
				return nil
			}),
		m.source.EXPECT().Read(gomock.Any(), "/project", *p.Steps[2].Input).
			Return([]*domain.Artifact{{Path: "src/app/main.html", Contents: []byte("<p>")}}, nil),
		m.sink.EXPECT().Write(gomock.Any(), "/project", "dist/js", gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, arts []*domain.Artifact) error {
				assert.Equal(t, "./app/main.html", arts[0].Path)
				assert.Equal(t, "<p>|markup-copy", string(arts[0].Contents))
				return nil
			}),
	)

	step, err := r.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, step)
}

func TestRunner_AbortOnError(t *testing.T) {
	r, m, _ := setupRunner(t)
	p := twoStreamPipeline()

	m.registry.EXPECT().Lookup(gomock.Any()).DoAndReturn(func(k domain.TransformKind) (ports.Transformer, error) {
		if k == domain.KindMinify {
			return failing{kind: k}, nil
		}
		return suffix{kind: k}, nil
	}).Times(3)
	m.source.EXPECT().Read(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]*domain.Artifact{{Path: "src/main.ts"}}, nil).Times(1)
	m.sink.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	step, err := r.Run(context.Background(), p)
	require.ErrorIs(t, err, domain.ErrTransformFailed)
	assert.Equal(t, "minify", step)
	assert.Contains(t, err.Error(), "syntax error at line 3")
}

func TestRunner_ContinueOnError(t *testing.T) {
	r, m, _ := setupRunner(t)
	p := twoStreamPipeline()
	p.Policy = domain.ContinueOnError

	m.registry.EXPECT().Lookup(gomock.Any()).DoAndReturn(func(k domain.TransformKind) (ports.Transformer, error) {
		if k == domain.KindMinify {
			return failing{kind: k}, nil
		}
		return suffix{kind: k}, nil
	}).Times(3)
	m.source.EXPECT().Read(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]*domain.Artifact{{Path: "src/main.ts"}}, nil).Times(2)
	m.sink.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	step, err := r.Run(context.Background(), p)
	require.ErrorIs(t, err, domain.ErrTransformFailed)
	assert.Equal(t, "minify", step)
}

func TestRunner_MissingTransformerRunsNothing(t *testing.T) {
	r, m, _ := setupRunner(t)
	p := twoStreamPipeline()

	m.registry.EXPECT().Lookup(domain.KindPreprocess).Return(suffix{kind: domain.KindPreprocess}, nil)
	m.registry.EXPECT().Lookup(domain.KindMinify).Return(nil, domain.ErrNoTransformer)
	m.source.EXPECT().Read(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := r.Run(context.Background(), p)
	require.ErrorIs(t, err, domain.ErrConfiguration)
	require.ErrorIs(t, err, domain.ErrNoTransformer)
}

func TestRunner_Canceled(t *testing.T) {
	r, m, _ := setupRunner(t)
	m.registry.EXPECT().Lookup(gomock.Any()).Return(suffix{}, nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, twoStreamPipeline())
	require.ErrorIs(t, err, context.Canceled)
}
