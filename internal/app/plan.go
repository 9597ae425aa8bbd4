package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.trai.ch/weave/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/engine/selector"
	"go.trai.ch/weave/internal/engine/tasks"
	"go.trai.ch/zerr"
)

// Plan writes the stages of cmd and its scripts pipeline to w without running
// anything. Overlapping outputs are reported exactly as a build would.
func (a *App) Plan(_ context.Context, cmd domain.Command, opts RunOptions, w io.Writer) error {
	project, err := a.load(opts)
	if err != nil {
		return err
	}
	plan, err := domain.PlanFor(cmd)
	if err != nil {
		return err
	}
	cfg, err := domain.NewBuildConfig(project, plan.Environment)
	if err != nil {
		return err
	}
	if err := a.scheduler(project, telemetry.NewNoOpTracer()).Validate(cfg, plan.Stages); err != nil {
		return err
	}
	scripts, err := selector.Select(cfg)
	if err != nil {
		return err
	}

	pw := &planWriter{w: w}
	pw.printf("%s (%s, %s)\n", plan.Command, plan.Environment, cfg.Mode)
	pw.printf("\nStages:\n")
	for i, st := range plan.Stages {
		name := st.Name
		if st.Advisory {
			name += " (advisory)"
		}
		pw.printf("  %d. %s\n", i+1, name)
		for _, t := range st.Tasks {
			if !tasks.Configured(project, t) {
				pw.printf("       %-16s not configured\n", t)
				continue
			}
			pw.printf("       %s\n", t)
		}
	}

	pw.printf("\nScripts pipeline:\n")
	for _, step := range scripts.Steps {
		if step.Input == nil {
			pw.printf("  %s\n", step.ID)
			continue
		}
		pw.printf("  %-24s %s\n", step.ID, strings.Join(step.Input.Patterns, " "))
	}
	pw.printf("  -> %s\n", scripts.Dest)

	if pw.err != nil {
		return zerr.Wrap(pw.err, "failed to write plan")
	}
	return nil
}

// planWriter keeps the first write error.
type planWriter struct {
	w   io.Writer
	err error
}

func (p *planWriter) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
