package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/weave/internal/core/ports"
)

var _ ports.Renderer = (*Renderer)(nil)

// NewModel creates a model that follows the running task.
func NewModel() Model {
	return Model{
		TaskMap:    make(map[string]*TaskNode),
		SpanMap:    make(map[string]*TaskNode),
		StepSpans:  make(map[string]string),
		Viewport:   viewport.New(0, 0),
		FollowMode: true,
	}
}

// Renderer wraps the Bubble Tea program as a ports.Renderer.
type Renderer struct {
	program *tea.Program
	model   *Model
	errCh   chan error
}

// NewRenderer creates a new TUI renderer.
func NewRenderer(model *Model, opts ...tea.ProgramOption) *Renderer {
	return &Renderer{
		program: tea.NewProgram(model, opts...),
		model:   model,
		errCh:   make(chan error, 1),
	}
}

// Start launches the program in a background goroutine.
func (r *Renderer) Start(_ context.Context) error {
	go func() {
		_, err := r.program.Run()
		r.errCh <- err
	}()
	return nil
}

// Stop signals the program to quit.
func (r *Renderer) Stop() error {
	r.program.Quit()
	return nil
}

// Wait blocks until the program has terminated.
func (r *Renderer) Wait() error {
	return <-r.errCh
}

// OnPlanEmit resets the task list.
func (r *Renderer) OnPlanEmit(command string, tasks []string) {
	r.program.Send(MsgPlan{Command: command, Tasks: tasks})
}

// OnTaskStart forwards task start events.
func (r *Renderer) OnTaskStart(spanID, parentID, name string, startTime time.Time) {
	r.program.Send(MsgTaskStart{
		SpanID:    spanID,
		ParentID:  parentID,
		Name:      name,
		StartTime: startTime,
	})
}

// OnTaskLog forwards task output.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.program.Send(MsgTaskLog{SpanID: spanID, Data: data})
}

// OnTaskComplete forwards completion events.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error) {
	r.program.Send(MsgTaskComplete{SpanID: spanID, EndTime: endTime, Err: err})
}

// Program returns the underlying program.
func (r *Renderer) Program() *tea.Program {
	return r.program
}
