// Package tasks runs single build tasks: pipelines, cleans, copies and lint.
package tasks

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/weave/internal/engine/selector"
	"go.trai.ch/zerr"
)

// PipelineRunner executes a selected pipeline and reports the failing step.
type PipelineRunner interface {
	Run(ctx context.Context, p *domain.Pipeline) (string, error)
}

// Runner implements ports.TaskRunner.
type Runner struct {
	pipelines PipelineRunner
	executor  ports.Executor
	cleaner   ports.Cleaner
	copier    ports.Copier
	logger    ports.Logger
}

// NewRunner creates a task runner.
func NewRunner(
	pipelines PipelineRunner,
	executor ports.Executor,
	cleaner ports.Cleaner,
	copier ports.Copier,
	logger ports.Logger,
) *Runner {
	return &Runner{
		pipelines: pipelines,
		executor:  executor,
		cleaner:   cleaner,
		copier:    copier,
		logger:    logger,
	}
}

var _ ports.TaskRunner = (*Runner)(nil)

// Run executes task under cfg. Tasks whose sources are not configured
// succeed without doing anything.
func (r *Runner) Run(ctx context.Context, cfg domain.BuildConfig, task domain.TaskID) domain.BuildResult {
	start := time.Now()
	res := domain.BuildResult{Task: task, Mode: cfg.Mode, Environment: cfg.Environment}

	if Configured(cfg.Project, task) {
		res.Step, res.Err = r.run(ctx, cfg, task)
	}
	res.Duration = time.Since(start)
	return res
}

func (r *Runner) run(ctx context.Context, cfg domain.BuildConfig, task domain.TaskID) (string, error) {
	switch task.Kind() {
	case domain.KindPipeline:
		p, err := selector.ForTask(cfg, task)
		if err != nil {
			return "", err
		}
		return r.pipelines.Run(ctx, p)
	case domain.KindClean:
		return "", r.clean(ctx, cfg.Project, task)
	case domain.KindCopy:
		return "", r.copy(ctx, cfg.Project, task)
	case domain.KindLint:
		return "", r.lint(ctx, cfg)
	default:
		return "", zerr.With(zerr.Wrap(domain.ErrUnknownTask, ""), "task", task.String())
	}
}

// Outputs returns what task writes under cfg.
func (r *Runner) Outputs(cfg domain.BuildConfig, task domain.TaskID) ([]domain.Output, error) {
	p := cfg.Project
	if !Configured(p, task) {
		return nil, nil
	}
	switch task.Kind() {
	case domain.KindPipeline:
		pl, err := selector.ForTask(cfg, task)
		if err != nil {
			return nil, err
		}
		return pl.Outputs, nil
	case domain.KindCopy:
		if task == domain.TaskCopyAssets {
			return []domain.Output{domain.TreeOutput(p.Assets.Dest)}, nil
		}
		out := make([]domain.Output, 0, len(p.Copy))
		for _, rule := range p.Copy {
			for _, src := range rule.Src {
				if strings.HasPrefix(src, "!") {
					continue
				}
				dest := path.Join(rule.Dest, src)
				if strings.ContainsAny(src, "*?[{") {
					out = append(out, domain.GlobOutput(dest))
				} else {
					out = append(out, domain.FileOutput(dest))
				}
			}
		}
		return out, nil
	default:
		return nil, nil
	}
}

// Configured reports whether the project sets up the sources of task.
func Configured(p *domain.Project, task domain.TaskID) bool {
	switch task {
	case domain.TaskLint:
		return len(p.Lint) > 0
	case domain.TaskScripts:
		return true
	case domain.TaskStyles:
		return len(p.Styles.Src) > 0
	case domain.TaskCopyIndex:
		return p.Index.Src != ""
	case domain.TaskCopyAssets:
		return p.Assets.Src != "" && p.Assets.Dest != ""
	case domain.TaskCopyOriginals:
		return len(p.Copy) > 0
	case domain.TaskVendor:
		return len(p.Vendor.Files) > 0
	case domain.TaskIconfont:
		return len(p.Icons.Src) > 0
	default:
		return true
	}
}

func (r *Runner) clean(ctx context.Context, p *domain.Project, task domain.TaskID) error {
	patterns, err := domain.CleanPatterns(p, task)
	if err != nil {
		return err
	}
	n, err := r.cleaner.Remove(ctx, p.Root, patterns)
	if err != nil {
		return errors.Join(domain.ErrCleanFailed, zerr.With(zerr.Wrap(err, ""), "task", task.String()))
	}
	if n > 0 {
		r.logger.Info(task.String() + ": removed " + plural(n, "path"))
	}
	return nil
}

func (r *Runner) copy(ctx context.Context, p *domain.Project, task domain.TaskID) error {
	if task == domain.TaskCopyAssets {
		if err := r.copier.Copy(ctx, p.Root, p.Assets.Src, p.Assets.Dest, nil); err != nil {
			return errors.Join(domain.ErrCopyFailed, zerr.With(zerr.Wrap(err, ""), "src", p.Assets.Src))
		}
		return nil
	}
	for _, rule := range p.Copy {
		if err := r.copier.Copy(ctx, p.Root, rule.Base, rule.Dest, rule.Src); err != nil {
			return errors.Join(domain.ErrCopyFailed, zerr.With(zerr.Wrap(err, ""), "src", rule.Base))
		}
	}
	return nil
}

// lint runs the configured linter. Its output streams to the task output and
// is kept and attached to the error so that warnings can be shown after the build.
func (r *Runner) lint(ctx context.Context, cfg domain.BuildConfig) error {
	var out bytes.Buffer
	inv := ports.Invocation{
		Args: cfg.Project.Lint,
		Dir:  cfg.Project.Root,
		Env:  map[string]string{"NODE_ENV": cfg.Environment.String()},
	}
	live := ports.OutputFrom(ctx)
	err := r.executor.Execute(ctx, inv, io.MultiWriter(&out, live), live)
	if err != nil {
		if msg := bytes.TrimSpace(out.Bytes()); len(msg) > 0 {
			return zerr.With(zerr.Wrap(err, ""), "output", string(msg))
		}
		return err
	}
	return nil
}

func plural(n int, word string) string {
	s := word
	if n != 1 {
		s += "s"
	}
	return strconv.Itoa(n) + " " + s
}
