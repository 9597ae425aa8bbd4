package app_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/adapters/detector"
	"go.trai.ch/weave/internal/app"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/weave/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	loader      *mocks.MockConfigLoader
	executor    *mocks.MockExecutor
	logger      *mocks.MockLogger
	registry    *mocks.MockTransformRegistry
	transformer *mocks.MockTransformer
	source      *mocks.MockArtifactSource
	sink        *mocks.MockArtifactSink
	cleaner     *mocks.MockCleaner
	copier      *mocks.MockCopier
	hasher      *mocks.MockTreeHasher
	watcher     *mocks.MockWatcher

	stdout *bytes.Buffer
	stderr *bytes.Buffer
	app    *app.App
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		loader:      mocks.NewMockConfigLoader(ctrl),
		executor:    mocks.NewMockExecutor(ctrl),
		logger:      mocks.NewMockLogger(ctrl),
		registry:    mocks.NewMockTransformRegistry(ctrl),
		transformer: mocks.NewMockTransformer(ctrl),
		source:      mocks.NewMockArtifactSource(ctrl),
		sink:        mocks.NewMockArtifactSink(ctrl),
		cleaner:     mocks.NewMockCleaner(ctrl),
		copier:      mocks.NewMockCopier(ctrl),
		hasher:      mocks.NewMockTreeHasher(ctrl),
		watcher:     mocks.NewMockWatcher(ctrl),
		stdout:      &bytes.Buffer{},
		stderr:      &bytes.Buffer{},
	}
	f.app = app.New(
		f.loader, f.executor, f.logger, f.registry, f.source, f.sink,
		f.cleaner, f.copier, f.hasher, f.watcher,
	).
		WithOutput(f.stdout, f.stderr).
		WithEnvironment(detector.Environment{CI: true}).
		WithParallelism(2)
	return f
}

// quiet accepts any log output.
func (f *fixture) quiet() {
	f.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	f.logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	f.logger.EXPECT().Error(gomock.Any()).AnyTimes()
}

// passthrough makes every transform return its input unchanged.
func (f *fixture) passthrough() {
	f.registry.EXPECT().Lookup(gomock.Any()).Return(f.transformer, nil).AnyTimes()
	f.transformer.EXPECT().Apply(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
			return in, nil
		}).AnyTimes()
	f.source.EXPECT().Read(gomock.Any(), "/project", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, sel domain.Selection) ([]*domain.Artifact, error) {
			return []*domain.Artifact{{Path: sel.Patterns[0], Contents: []byte("x")}}, nil
		}).AnyTimes()
}

func project() *domain.Project {
	return &domain.Project{
		Root: "/project",
		Dist: "dist",
		Mode: "lazy",
		Scripts: domain.Scripts{
			Src:     []string{"src/**/*.ts", "!src/**/*.spec.ts"},
			Base:    "src",
			AppBase: "app",
			Dest:    "dist/js",
			Name:    "app.js",
			Target:  "es2017",
			Styles:  []string{"src/**/*.less"},
			Markup:  []string{"src/**/*.html"},
		},
		Styles: domain.Styles{
			Src:  []string{"styles/main.less"},
			Base: "styles",
			Dest: "dist/css",
			Name: "app.css",
		},
		Index: domain.Index{Src: "src/index.html", Dest: "dist", Name: "index.html"},
		Serve: domain.Serve{Port: 0},
	}
}

func TestApp_Plan(t *testing.T) {
	tests := []struct {
		name       string
		cmd        domain.Command
		mode       string
		goldenName string
	}{
		{name: "dev-build lazy", cmd: domain.CommandDevBuild, goldenName: "plan_dev_build_lazy"},
		{name: "build with mode override", cmd: domain.CommandBuild, mode: "bundle", goldenName: "plan_build_bundle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.loader.EXPECT().Load(gomock.Any(), "").Return(project(), nil)

			var buf bytes.Buffer
			err := f.app.Plan(t.Context(), tt.cmd, app.RunOptions{Mode: tt.mode}, &buf)
			require.NoError(t, err)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestApp_Plan_OverlappingOutputs(t *testing.T) {
	f := newFixture(t)
	p := project()
	p.Styles.Dest = "dist/js"
	f.loader.EXPECT().Load(gomock.Any(), "weave.ci.yaml").Return(p, nil)

	err := f.app.Plan(t.Context(), domain.CommandDevBuild, app.RunOptions{ConfigPath: "weave.ci.yaml"}, io.Discard)
	require.ErrorIs(t, err, domain.ErrOverlappingDestinations)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestApp_Plan_CopyRuleOverlapsBundle(t *testing.T) {
	f := newFixture(t)
	p := project()
	p.Mode = "bundle"
	p.Scripts.Name = "app.js"
	p.Copy = []domain.CopyRule{{Base: "static", Src: []string{"**/*"}, Dest: "dist"}}
	f.loader.EXPECT().Load(gomock.Any(), "").Return(p, nil)

	err := f.app.Plan(t.Context(), domain.CommandBuild, app.RunOptions{}, io.Discard)
	require.ErrorIs(t, err, domain.ErrOverlappingDestinations)
}

func TestApp_Build_ConfigurationErrors(t *testing.T) {
	t.Run("load failure", func(t *testing.T) {
		f := newFixture(t)
		f.loader.EXPECT().Load(gomock.Any(), "").Return(nil, domain.ConfigError(domain.ErrConfigNotFound, "cwd", "/"))

		err := f.app.Build(t.Context(), domain.CommandBuild, app.RunOptions{})
		require.ErrorIs(t, err, domain.ErrConfigNotFound)
	})

	t.Run("unknown mode override", func(t *testing.T) {
		f := newFixture(t)
		f.loader.EXPECT().Load(gomock.Any(), "").Return(project(), nil)

		err := f.app.Build(t.Context(), domain.CommandBuild, app.RunOptions{Mode: "split"})
		require.ErrorIs(t, err, domain.ErrUnknownPackagingMode)
	})

	t.Run("unknown output mode", func(t *testing.T) {
		f := newFixture(t)
		f.loader.EXPECT().Load(gomock.Any(), "").Return(project(), nil)

		err := f.app.Build(t.Context(), domain.CommandBuild, app.RunOptions{OutputMode: "fancy"})
		require.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("missing mode", func(t *testing.T) {
		f := newFixture(t)
		f.quiet()
		p := project()
		p.Mode = ""
		f.loader.EXPECT().Load(gomock.Any(), "").Return(p, nil)

		err := f.app.Build(t.Context(), domain.CommandBuild, app.RunOptions{})
		require.ErrorIs(t, err, domain.ErrUnknownPackagingMode)
	})
}

func TestApp_Build_Linear(t *testing.T) {
	f := newFixture(t)
	f.quiet()
	f.passthrough()
	f.loader.EXPECT().Load(gomock.Any(), "").Return(project(), nil)
	f.cleaner.EXPECT().Remove(gomock.Any(), "/project", []string{"dist"}).Return(1, nil)

	var (
		mu      sync.Mutex
		written []string
	)
	f.sink.EXPECT().Write(gomock.Any(), "/project", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, dest string, _ []*domain.Artifact) error {
			mu.Lock()
			defer mu.Unlock()
			written = append(written, dest)
			return nil
		}).AnyTimes()

	err := f.app.Build(t.Context(), domain.CommandBuild, app.RunOptions{Mode: "bundle"})
	require.NoError(t, err)

	assert.Contains(t, written, "dist/js")
	assert.Contains(t, written, "dist/css")
	assert.Contains(t, written, "dist")
	assert.Contains(t, f.stderr.String()+f.stdout.String(), "scripts")
}

func TestApp_Build_Failure(t *testing.T) {
	f := newFixture(t)
	f.quiet()
	f.loader.EXPECT().Load(gomock.Any(), "").Return(project(), nil)
	f.cleaner.EXPECT().Remove(gomock.Any(), "/project", gomock.Any()).Return(0, nil).AnyTimes()
	f.registry.EXPECT().Lookup(gomock.Any()).Return(f.transformer, nil).AnyTimes()
	f.source.EXPECT().Read(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	f.sink.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.transformer.EXPECT().Apply(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, step domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
			if step.Kind == domain.KindTranspile {
				return nil, errors.New("unexpected token")
			}
			return in, nil
		}).AnyTimes()

	err := f.app.Build(t.Context(), domain.CommandDevBuild, app.RunOptions{})
	require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
	assert.ErrorIs(t, err, domain.ErrTransformFailed)
}

func TestApp_Build_TUI(t *testing.T) {
	f := newFixture(t)
	f.quiet()
	f.passthrough()
	f.app.
		WithEnvironment(detector.Environment{TTY: true}).
		WithTeaOptions(
			tea.WithInput(strings.NewReader("")),
			tea.WithOutput(io.Discard),
			tea.WithoutSignalHandler(),
			tea.WithoutRenderer(),
		)
	f.loader.EXPECT().Load(gomock.Any(), "").Return(project(), nil)
	f.cleaner.EXPECT().Remove(gomock.Any(), "/project", gomock.Any()).Return(0, nil).Times(3)
	f.sink.EXPECT().Write(gomock.Any(), "/project", gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	err := f.app.Build(t.Context(), domain.CommandDevBuild, app.RunOptions{OutputMode: "tui"})
	require.NoError(t, err)
	assert.Empty(t, f.stdout.String())
}

func TestApp_Clean(t *testing.T) {
	tests := []struct {
		name     string
		all      bool
		targets  []string
		patterns [][]string
	}{
		{
			name: "default set",
			patterns: [][]string{
				{"dist/js/**/*.js", "dist/js/**/*.map"},
				{"dist/css/**/*.css", "dist/css/**/*.map"},
				{"dist/index.html"},
			},
		},
		{
			name:     "all",
			all:      true,
			targets:  []string{"scripts"},
			patterns: [][]string{{"dist"}},
		},
		{
			name:     "named targets",
			targets:  []string{"html", "clean:html", "styles"},
			patterns: [][]string{{"dist/**/*.html"}, {"dist/css/**/*.css", "dist/css/**/*.map"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.quiet()
			f.loader.EXPECT().Load(gomock.Any(), "").Return(project(), nil)
			for _, p := range tt.patterns {
				f.cleaner.EXPECT().Remove(gomock.Any(), "/project", p).Return(2, nil)
			}

			err := f.app.Clean(t.Context(), app.RunOptions{}, tt.all, tt.targets)
			require.NoError(t, err)
		})
	}
}

func TestApp_Clean_Errors(t *testing.T) {
	t.Run("unknown target", func(t *testing.T) {
		f := newFixture(t)
		f.loader.EXPECT().Load(gomock.Any(), "").Return(project(), nil)

		err := f.app.Clean(t.Context(), app.RunOptions{}, false, []string{"scripts", "lint"})
		require.ErrorIs(t, err, domain.ErrUnknownTask)
	})

	t.Run("remove failure", func(t *testing.T) {
		f := newFixture(t)
		f.quiet()
		f.loader.EXPECT().Load(gomock.Any(), "").Return(project(), nil)
		f.cleaner.EXPECT().Remove(gomock.Any(), "/project", []string{"dist"}).Return(0, errors.New("permission denied"))

		err := f.app.Clean(t.Context(), app.RunOptions{}, true, nil)
		require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
		assert.ErrorIs(t, err, domain.ErrCleanFailed)
	})
}

func TestApp_Serve(t *testing.T) {
	f := newFixture(t)
	f.quiet()
	f.loader.EXPECT().Load(gomock.Any(), "").Return(project(), nil)
	f.hasher.EXPECT().Digest("/project/dist").Return("abc", nil).MinTimes(1)

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	err := f.app.WithPollInterval(10*time.Millisecond).Serve(ctx, app.RunOptions{})
	require.NoError(t, err)
}

func TestApp_Watch(t *testing.T) {
	f := newFixture(t)
	f.passthrough()
	f.loader.EXPECT().Load(gomock.Any(), "").Return(project(), nil)
	f.cleaner.EXPECT().Remove(gomock.Any(), "/project", gomock.Any()).Return(0, nil).AnyTimes()
	f.sink.EXPECT().Write(gomock.Any(), "/project", gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var finished atomic.Int32
	f.logger.EXPECT().Info(gomock.Any()).Do(func(msg string) {
		if msg == "Build has finished." && finished.Add(1) == 2 {
			cancel()
		}
	}).AnyTimes()
	f.logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	events := func(yield func(ports.WatchEvent) bool) {
		yield(ports.WatchEvent{Path: "/project/src/app.ts", Operation: ports.OpWrite})
	}
	f.watcher.EXPECT().Start(gomock.Any(), "/project", []string{"dist"}).Return(nil)
	f.watcher.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](events))
	f.watcher.EXPECT().Stop().Return(nil)

	err := f.app.WithDebounce(time.Millisecond).Watch(ctx, app.RunOptions{}, false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), finished.Load())
}
