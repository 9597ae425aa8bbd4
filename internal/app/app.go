// Package app implements the application layer for weave.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/weave/internal/adapters/detector"  //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/linear"    //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/notifier"  //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/server"    //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/tui"       //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/weave/internal/engine/devloop"
	"go.trai.ch/weave/internal/engine/pipeline"
	"go.trai.ch/weave/internal/engine/scheduler"
	"go.trai.ch/weave/internal/engine/tasks"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// InstrumentationName names the tracer of every run.
const InstrumentationName = "weave"

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	executor     ports.Executor
	logger       ports.Logger
	registry     ports.TransformRegistry
	source       ports.ArtifactSource
	sink         ports.ArtifactSink
	cleaner      ports.Cleaner
	copier       ports.Copier
	hasher       ports.TreeHasher
	watcher      ports.Watcher

	teaOptions   []tea.ProgramOption
	stdout       io.Writer
	stderr       io.Writer
	env          *detector.Environment
	parallelism  int
	pollInterval time.Duration
	debounce     time.Duration
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	executor ports.Executor,
	log ports.Logger,
	registry ports.TransformRegistry,
	source ports.ArtifactSource,
	sink ports.ArtifactSink,
	cleaner ports.Cleaner,
	copier ports.Copier,
	hasher ports.TreeHasher,
	watcher ports.Watcher,
) *App {
	return &App{
		configLoader: loader,
		executor:     executor,
		logger:       log,
		registry:     registry,
		source:       source,
		sink:         sink,
		cleaner:      cleaner,
		copier:       copier,
		hasher:       hasher,
		watcher:      watcher,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		pollInterval: server.DefaultPollInterval,
		debounce:     devloop.DefaultDebounceWindow,
	}
}

// WithTeaOptions adds bubbletea program options to the App.
// This is primarily used for testing to disable input/output.
func (a *App) WithTeaOptions(opts ...tea.ProgramOption) *App {
	a.teaOptions = append(a.teaOptions, opts...)
	return a
}

// WithOutput sets where the linear renderer writes.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithEnvironment replaces the detected terminal environment.
func (a *App) WithEnvironment(env detector.Environment) *App {
	a.env = &env
	return a
}

// WithParallelism bounds how many tasks of a stage run at once.
func (a *App) WithParallelism(n int) *App {
	a.parallelism = n
	return a
}

// WithPollInterval sets how often serve recomputes the output digest.
func (a *App) WithPollInterval(d time.Duration) *App {
	a.pollInterval = d
	return a
}

// WithDebounce sets the debounce window of the watch loop.
func (a *App) WithDebounce(d time.Duration) *App {
	a.debounce = d
	return a
}

// RunOptions are the persistent flags shared by every command.
type RunOptions struct {
	// ConfigPath is the configuration file name searched upward, or a path.
	ConfigPath string
	// Mode overrides the packaging mode of the configuration.
	Mode string
	// OutputMode is auto, tui or linear.
	OutputMode string
	// CI forces linear output.
	CI bool
}

// Build runs cmd once.
func (a *App) Build(ctx context.Context, cmd domain.Command, opts RunOptions) error {
	project, err := a.load(opts)
	if err != nil {
		return err
	}
	mode, err := a.outputMode(opts)
	if err != nil {
		return err
	}

	return a.session(ctx, a.renderer(ctx, mode), func(ctx context.Context, tracer ports.Tracer) error {
		_, err := a.scheduler(project, tracer).Run(ctx, cmd, project)
		return err
	})
}

// Watch runs dev-build, then rebuilds with watch-build after every settled
// batch of source changes until ctx is done. With serve the development
// server runs alongside and reloads browsers after every successful rebuild.
func (a *App) Watch(ctx context.Context, opts RunOptions, serve bool) error {
	project, err := a.load(opts)
	if err != nil {
		return err
	}

	renderer := linear.NewRenderer(a.stdout, a.stderr)
	return a.session(ctx, renderer, func(ctx context.Context, tracer ports.Tracer) error {
		sched := a.scheduler(project, tracer)
		if _, err := sched.Run(ctx, domain.CommandDevBuild, project); err != nil {
			if errors.Is(err, domain.ErrConfiguration) || ctx.Err() != nil {
				return err
			}
			a.logger.Error(err)
		}

		g, ctx := errgroup.WithContext(ctx)

		var reloader ports.Reloader
		if serve {
			srv := a.server(project)
			reloader = srv
			g.Go(func() error { return srv.Serve(ctx) })
		}

		loop := devloop.New(a.watcher, a.logger, reloader).WithWindow(a.debounce)
		g.Go(func() error {
			return loop.Run(ctx, watchOptions(project), func(ctx context.Context) error {
				_, err := sched.Run(ctx, domain.CommandWatchBuild, project)
				return err
			})
		})
		return g.Wait()
	})
}

// Serve hosts the output root with live reload until ctx is done. Browsers
// reload whenever the content digest of the served tree changes.
func (a *App) Serve(ctx context.Context, opts RunOptions) error {
	project, err := a.load(opts)
	if err != nil {
		return err
	}
	srv := a.server(project)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx) })
	g.Go(func() error { return srv.WatchOutput(ctx, a.pollInterval) })
	return g.Wait()
}

// Clean removes build output. Without targets the development clean set is
// removed; all removes the whole output directory.
func (a *App) Clean(ctx context.Context, opts RunOptions, all bool, targets []string) error {
	project, err := a.load(opts)
	if err != nil {
		return err
	}
	cleanTasks, err := cleanSelection(all, targets)
	if err != nil {
		return err
	}
	mode, err := a.outputMode(opts)
	if err != nil {
		return err
	}

	// Clean tasks only read the project, so no packaging mode is required.
	cfg := domain.BuildConfig{Environment: domain.EnvDevelopment, Project: project}
	stages := []domain.Stage{{Name: "clean", Tasks: cleanTasks}}

	return a.session(ctx, a.renderer(ctx, mode), func(ctx context.Context, tracer ports.Tracer) error {
		tracer.EmitPlan(ctx, "clean", taskNames(cleanTasks))
		results := a.scheduler(project, tracer).RunSequence(ctx, cfg, stages)

		var errs error
		for _, res := range results {
			if res.Err != nil {
				errs = errors.Join(errs, zerr.With(zerr.Wrap(res.Err, ""), "task", res.Task.String()))
			}
		}
		if errs != nil {
			return errors.Join(domain.ErrBuildExecutionFailed, errs)
		}
		return ctx.Err()
	})
}

func (a *App) load(opts RunOptions) (*domain.Project, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to get working directory")
	}
	project, err := a.configLoader.Load(cwd, opts.ConfigPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	if opts.Mode != "" {
		if _, err := domain.ParsePackagingMode(opts.Mode); err != nil {
			return nil, err
		}
		project.Mode = opts.Mode
	}
	return project, nil
}

func (a *App) outputMode(opts RunOptions) (detector.OutputMode, error) {
	requested, err := detector.ParseOutputMode(opts.OutputMode)
	if err != nil {
		return requested, err
	}
	env := detector.DetectEnvironment()
	if a.env != nil {
		env = *a.env
	}
	return env.Resolve(requested, opts.CI), nil
}

func (a *App) renderer(ctx context.Context, mode detector.OutputMode) ports.Renderer {
	if mode == detector.ModeTUI {
		model := tui.NewModel()
		optsTea := append([]tea.ProgramOption{tea.WithContext(ctx)}, a.teaOptions...)
		return tui.NewRenderer(&model, optsTea...)
	}
	return linear.NewRenderer(a.stdout, a.stderr)
}

// scheduler assembles the per run engine around tracer.
func (a *App) scheduler(project *domain.Project, tracer ports.Tracer) *scheduler.Scheduler {
	pipelines := pipeline.NewRunner(a.registry, a.source, a.sink, tracer)
	runner := tasks.NewRunner(pipelines, a.executor, a.cleaner, a.copier, a.logger)
	notify := notifier.New(a.executor, a.logger, project.Notify, project.Root)
	return scheduler.NewScheduler(runner, tracer, a.logger, notify).WithParallelism(a.parallelism)
}

func (a *App) server(project *domain.Project) *server.Server {
	return server.New(project.Abs(project.ServeRoot()), project.Serve.Port, a.logger, a.hasher)
}

// session runs fn with a tracer that reports to renderer. The renderer is
// stopped as soon as fn returns.
func (a *App) session(
	ctx context.Context,
	renderer ports.Renderer,
	fn func(ctx context.Context, tracer ports.Tracer) error,
) error {
	tracer := telemetry.NewOTelTracer(InstrumentationName).WithRenderer(renderer)
	defer func() {
		_ = tracer.Shutdown(context.WithoutCancel(ctx))
	}()

	g, ctx := errgroup.WithContext(ctx)

	// Renderer Routine
	g.Go(func() error {
		if err := renderer.Start(ctx); err != nil {
			return err
		}
		// Wait blocks until the renderer has terminated.
		return renderer.Wait()
	})

	// Build Routine
	g.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				_, _ = fmt.Fprintf(a.stderr, "Scheduler panic: %v\n", r)
			}
			_ = renderer.Stop()
		}()
		return fn(ctx, tracer)
	})

	return g.Wait()
}

func watchOptions(p *domain.Project) devloop.Options {
	ignore := []string{filepath.ToSlash(p.Dist)}
	return devloop.Options{Root: p.Root, Patterns: p.Watch, Ignore: ignore}
}

func cleanSelection(all bool, targets []string) ([]domain.TaskID, error) {
	if all {
		return []domain.TaskID{domain.TaskCleanAll}, nil
	}
	if len(targets) == 0 {
		return []domain.TaskID{domain.TaskCleanScripts, domain.TaskCleanStyles, domain.TaskCleanIndex}, nil
	}

	out := make([]domain.TaskID, 0, len(targets))
	for _, t := range targets {
		name := t
		if !strings.HasPrefix(name, "clean:") {
			name = "clean:" + name
		}
		id, err := domain.ParseTaskID(name)
		if err != nil || id.Kind() != domain.KindClean {
			return nil, zerr.With(zerr.Wrap(domain.ErrUnknownTask, "not a clean target"), "target", t)
		}
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func taskNames(ids []domain.TaskID) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	return names
}
