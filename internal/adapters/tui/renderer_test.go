package tui_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/weave/internal/adapters/tui"
)

func newRenderer(m *tui.Model) *tui.Renderer {
	return tui.NewRenderer(
		m,
		tea.WithInput(strings.NewReader("")),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
		tea.WithoutRenderer(),
	)
}

func TestRenderer_Lifecycle(t *testing.T) {
	model := tui.NewModel()
	renderer := newRenderer(&model)

	if err := renderer.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := renderer.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := renderer.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestRenderer_ForwardsEvents(t *testing.T) {
	model := tui.NewModel()
	renderer := newRenderer(&model)

	if err := renderer.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	now := time.Now()
	renderer.OnPlanEmit("build", []string{"scripts"})
	renderer.OnTaskStart("s1", "", "scripts", now)
	renderer.OnTaskLog("s1", []byte("ok\n"))
	renderer.OnTaskComplete("s1", now.Add(time.Second), nil)

	// Send is synchronous with the event loop, so a final Stop is processed
	// after the events above.
	_ = renderer.Stop()
	if err := renderer.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	node := model.TaskMap["scripts"]
	if node == nil {
		t.Fatal("scripts task missing")
	}
	if node.Status != tui.StatusDone {
		t.Errorf("status = %v, want %v", node.Status, tui.StatusDone)
	}
	if got := node.Logs.String(); got != "ok\n" {
		t.Errorf("logs = %q, want %q", got, "ok\n")
	}
	if renderer.Program() == nil {
		t.Error("Program() returned nil")
	}
}
