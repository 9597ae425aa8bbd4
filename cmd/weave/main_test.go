package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/weave/internal/adapters/detector"
	"go.trai.ch/weave/internal/app"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type harness struct {
	loader  *mocks.MockConfigLoader
	logger  *mocks.MockLogger
	cleaner *mocks.MockCleaner
	app     *app.App
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	h := &harness{
		loader:  mocks.NewMockConfigLoader(ctrl),
		logger:  mocks.NewMockLogger(ctrl),
		cleaner: mocks.NewMockCleaner(ctrl),
	}
	h.app = app.New(
		h.loader,
		mocks.NewMockExecutor(ctrl),
		h.logger,
		mocks.NewMockTransformRegistry(ctrl),
		mocks.NewMockArtifactSource(ctrl),
		mocks.NewMockArtifactSink(ctrl),
		h.cleaner,
		mocks.NewMockCopier(ctrl),
		mocks.NewMockTreeHasher(ctrl),
		mocks.NewMockWatcher(ctrl),
	)
	return h
}

func (h *harness) provider(_ context.Context) (*app.Components, func(), error) {
	return &app.Components{App: h.app, Logger: h.logger}, func() {}, nil
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	h := newHarness(t)
	stdout := new(bytes.Buffer)

	exitCode := run(context.Background(), []string{"version"}, stdout, new(bytes.Buffer), h.provider)
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "weave version")
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, new(bytes.Buffer), stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that configuration errors are logged and exit with 1.
func TestRun_ExecutionError(t *testing.T) {
	h := newHarness(t)
	h.loader.EXPECT().Load(gomock.Any(), "weave.yaml").Return(nil, domain.ErrConfigNotFound)
	h.logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, domain.ErrConfigNotFound)
	})

	exitCode := run(context.Background(), []string{"build"}, new(bytes.Buffer), new(bytes.Buffer), h.provider)
	assert.Equal(t, 1, exitCode)
}

// TestRun_BuildFailure verifies that failed builds exit with 1 and are only
// reported by the task that failed.
func TestRun_BuildFailure(t *testing.T) {
	h := newHarness(t)
	h.loader.EXPECT().Load(gomock.Any(), "weave.yaml").Return(&domain.Project{Root: "/p", Dist: "dist"}, nil)
	h.cleaner.EXPECT().Remove(gomock.Any(), "/p", []string{"dist"}).Return(0, errors.New("read-only file system"))
	h.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	h.logger.EXPECT().Error(gomock.Any()).Times(1)

	withEnv := func(a *app.App) {
		a.WithEnvironment(detector.Environment{CI: true}).WithOutput(new(bytes.Buffer), new(bytes.Buffer))
	}

	exitCode := run(context.Background(), []string{"clean", "--all"}, new(bytes.Buffer), new(bytes.Buffer), h.provider, withEnv)
	assert.Equal(t, 1, exitCode)
}
