// Package scheduler runs the stages of a build command.
package scheduler

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// TaskStatus represents the status of a task.
type TaskStatus string

const (
	// StatusPending indicates the task is waiting to be executed.
	StatusPending TaskStatus = "Pending"
	// StatusRunning indicates the task is currently executing.
	StatusRunning TaskStatus = "Running"
	// StatusCompleted indicates the task has finished successfully.
	StatusCompleted TaskStatus = "Completed"
	// StatusFailed indicates the task execution failed.
	StatusFailed TaskStatus = "Failed"
	// StatusWarned indicates an advisory task reported problems.
	StatusWarned TaskStatus = "Warned"
	// StatusSkipped indicates the task never ran because an earlier stage failed.
	StatusSkipped TaskStatus = "Skipped"
)

// Notification titles.
const (
	TitleSuccess = "Build Successful"
	TitleFailure = "Build Failed"
	TitleWarning = "Build Warnings"
)

// Scheduler runs the stages of a command in order.
type Scheduler struct {
	runner   ports.TaskRunner
	tracer   ports.Tracer
	logger   ports.Logger
	notifier ports.Notifier

	parallelism int

	mu         sync.RWMutex
	taskStatus map[domain.TaskID]TaskStatus
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(
	runner ports.TaskRunner,
	tracer ports.Tracer,
	logger ports.Logger,
	notifier ports.Notifier,
) *Scheduler {
	return &Scheduler{
		runner:      runner,
		tracer:      tracer,
		logger:      logger,
		notifier:    notifier,
		parallelism: runtime.NumCPU(),
		taskStatus:  make(map[domain.TaskID]TaskStatus),
	}
}

// WithParallelism bounds how many tasks of one stage run at once.
func (s *Scheduler) WithParallelism(n int) *Scheduler {
	if n > 0 {
		s.parallelism = n
	}
	return s
}

// Status returns the status of task in the last run.
func (s *Scheduler) Status(task domain.TaskID) TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.taskStatus[task]
}

func (s *Scheduler) initTaskStatuses(stages []domain.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.taskStatus)
	for _, st := range stages {
		for _, t := range st.Tasks {
			s.taskStatus[t] = StatusPending
		}
	}
}

func (s *Scheduler) updateStatus(task domain.TaskID, status TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskStatus[task] = status
}

// Run executes the fixed composition of cmd against project.
//
// Configuration problems, including overlapping outputs of tasks that share a
// stage, are returned before any task runs. Otherwise Run returns the results
// of every task that ran and, when a required task failed, an error wrapping
// domain.ErrBuildExecutionFailed.
func (s *Scheduler) Run(
	ctx context.Context,
	cmd domain.Command,
	project *domain.Project,
) ([]domain.BuildResult, error) {
	plan, err := domain.PlanFor(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := domain.NewBuildConfig(project, plan.Environment)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(cfg, plan.Stages); err != nil {
		return nil, err
	}

	s.tracer.EmitPlan(ctx, string(cmd), planned(plan.Stages))
	s.logger.Info("Starting " + cfg.Environment.String() + " build...")

	results := s.RunSequence(ctx, cfg, plan.Stages)

	if err := summarize(results); err != nil {
		s.notify(ctx, TitleFailure, err.Error())
		return results, errors.Join(domain.ErrBuildExecutionFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	s.logger.Info("Build has finished.")
	s.notify(ctx, TitleSuccess, "Build has finished.")
	return results, nil
}

// Validate checks that no two tasks of one stage write overlapping outputs.
func (s *Scheduler) Validate(cfg domain.BuildConfig, stages []domain.Stage) error {
	for _, st := range stages {
		outputs := make(map[domain.TaskID][]domain.Output, len(st.Tasks))
		for _, t := range st.Tasks {
			out, err := s.runner.Outputs(cfg, t)
			if err != nil {
				return err
			}
			outputs[t] = out
		}
		if err := domain.ValidateOutputs(outputs); err != nil {
			return zerr.With(zerr.Wrap(err, ""), "stage", st.Name)
		}
	}
	return nil
}

// RunSequence runs stages in order. The tasks of a stage run concurrently and
// the stage waits for all of them. A failed required task stops the sequence
// once its stage has completed; failed advisory tasks are reported as warnings.
func (s *Scheduler) RunSequence(
	ctx context.Context,
	cfg domain.BuildConfig,
	stages []domain.Stage,
) []domain.BuildResult {
	s.initTaskStatuses(stages)

	var results []domain.BuildResult
	for i, st := range stages {
		if ctx.Err() != nil {
			s.skip(stages[i:])
			break
		}

		stageResults := s.runStage(ctx, cfg, st)
		results = append(results, stageResults...)

		if failed(stageResults) {
			s.skip(stages[i+1:])
			break
		}
	}
	return results
}

func (s *Scheduler) runStage(ctx context.Context, cfg domain.BuildConfig, st domain.Stage) []domain.BuildResult {
	results := make([]domain.BuildResult, len(st.Tasks))

	// Siblings are not cancelled by a failure: the group context is not used.
	var g errgroup.Group
	g.SetLimit(s.parallelism)

	for i, task := range st.Tasks {
		g.Go(func() error {
			results[i] = s.executeTask(ctx, cfg, task, st.Advisory)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		switch {
		case r.Warned():
			s.logger.Warn(r.Task.String() + ": " + r.Err.Error())
			s.notify(ctx, TitleWarning, r.Task.String()+" reported problems.")
		case r.Failed():
			s.logger.Error(r.Err)
		}
	}
	return results
}

func (s *Scheduler) executeTask(
	ctx context.Context,
	cfg domain.BuildConfig,
	task domain.TaskID,
	advisory bool,
) domain.BuildResult {
	s.updateStatus(task, StatusRunning)

	ctx, span := s.tracer.Start(ctx, task.String(),
		ports.WithAttribute("weave.mode", cfg.Mode.String()),
		ports.WithAttribute("weave.environment", cfg.Environment.String()),
	)
	defer span.End()
	ctx = ports.WithOutput(ctx, span)

	start := time.Now()
	res := s.runner.Run(ctx, cfg, task)
	res.Task = task
	res.Mode = cfg.Mode
	res.Environment = cfg.Environment
	res.Advisory = advisory
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}

	switch {
	case res.Err == nil:
		s.updateStatus(task, StatusCompleted)
	case advisory:
		res.Err = errors.Join(domain.ErrLintWarning, res.Err)
		span.RecordError(res.Err)
		s.updateStatus(task, StatusWarned)
	default:
		res.Err = errors.Join(domain.ErrTaskFailed, zerr.With(zerr.Wrap(res.Err, ""), "task", task.String()))
		span.RecordError(res.Err)
		s.updateStatus(task, StatusFailed)
	}
	return res
}

func (s *Scheduler) skip(stages []domain.Stage) {
	for _, st := range stages {
		for _, t := range st.Tasks {
			s.updateStatus(t, StatusSkipped)
		}
	}
}

// notify tells the observer. A failing notification never fails a build.
func (s *Scheduler) notify(ctx context.Context, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), title, message); err != nil {
		s.logger.Warn("notification failed: " + err.Error())
	}
}

func planned(stages []domain.Stage) []string {
	var names []string
	for _, st := range stages {
		for _, t := range st.Tasks {
			names = append(names, t.String())
		}
	}
	return names
}

func failed(results []domain.BuildResult) bool {
	for _, r := range results {
		if r.Failed() {
			return true
		}
	}
	return false
}

func summarize(results []domain.BuildResult) error {
	var errs error
	for _, r := range results {
		if r.Failed() {
			errs = errors.Join(errs, r.Err)
		}
	}
	return errs
}
