package tui_test

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/adapters/tui"
)

func newModel(t *testing.T, tasks ...string) *tui.Model {
	t.Helper()
	m := tui.NewModel()
	send(t, &m, tea.WindowSizeMsg{Width: 100, Height: 30})
	send(t, &m, tui.MsgPlan{Command: "build", Tasks: tasks})
	return &m
}

func send(t *testing.T, m *tui.Model, msg tea.Msg) tea.Cmd {
	t.Helper()
	updated, cmd := m.Update(msg)
	require.Same(t, m, updated)
	return cmd
}

func TestModel_Plan(t *testing.T) {
	m := newModel(t, "clean", "scripts", "styles")

	assert.Equal(t, "build", m.Command)
	require.Len(t, m.Tasks, 3)
	for _, task := range m.Tasks {
		assert.Equal(t, tui.StatusPending, task.Status)
	}
	assert.Same(t, m.Tasks[1], m.TaskMap["scripts"])
}

func TestModel_TaskLifecycle(t *testing.T) {
	m := newModel(t, "clean", "scripts")
	start := time.Unix(100, 0)

	send(t, m, tui.MsgTaskStart{SpanID: "s1", Name: "scripts", StartTime: start})
	assert.Equal(t, tui.StatusRunning, m.TaskMap["scripts"].Status)
	assert.Equal(t, "scripts", m.ActiveTaskName)
	assert.Equal(t, 1, m.SelectedIdx)

	send(t, m, tui.MsgTaskStart{SpanID: "s2", ParentID: "s1", Name: "transpile", StartTime: start})
	assert.Equal(t, "transpile", m.TaskMap["scripts"].Step)
	assert.Len(t, m.Tasks, 2, "steps are not listed as tasks")

	send(t, m, tui.MsgTaskLog{SpanID: "s2", Data: []byte("compiled app.ts\n")})
	assert.Contains(t, m.TaskMap["scripts"].Logs.String(), "compiled app.ts")
	assert.Contains(t, m.Viewport.View(), "compiled app.ts")

	send(t, m, tui.MsgTaskComplete{SpanID: "s2", EndTime: start.Add(time.Second)})
	assert.Empty(t, m.TaskMap["scripts"].Step)
	assert.Equal(t, tui.StatusRunning, m.TaskMap["scripts"].Status)

	send(t, m, tui.MsgTaskComplete{SpanID: "s1", EndTime: start.Add(2 * time.Second)})
	assert.Equal(t, tui.StatusDone, m.TaskMap["scripts"].Status)
	assert.Equal(t, 2*time.Second, m.TaskMap["scripts"].Duration)
}

func TestModel_TaskError(t *testing.T) {
	m := newModel(t, "styles")

	send(t, m, tui.MsgTaskStart{SpanID: "s1", Name: "styles"})
	send(t, m, tui.MsgTaskComplete{SpanID: "s1", Err: errors.New("style compiler failed")})

	node := m.TaskMap["styles"]
	assert.Equal(t, tui.StatusError, node.Status)
	assert.Contains(t, m.Viewport.View(), "style compiler failed")
}

func TestModel_UnplannedTask(t *testing.T) {
	m := newModel(t, "scripts")

	send(t, m, tui.MsgTaskStart{SpanID: "s1", Name: "lint"})
	require.Len(t, m.Tasks, 2)
	assert.Equal(t, "lint", m.Tasks[1].Name)
}

func TestModel_UnknownSpanIgnored(t *testing.T) {
	m := newModel(t, "scripts")

	send(t, m, tui.MsgTaskLog{SpanID: "nope", Data: []byte("x")})
	send(t, m, tui.MsgTaskComplete{SpanID: "nope"})
	assert.Equal(t, tui.StatusPending, m.Tasks[0].Status)
}

func TestModel_Navigation(t *testing.T) {
	m := newModel(t, "clean", "scripts", "styles")
	send(t, m, tui.MsgTaskStart{SpanID: "s1", Name: "scripts"})

	send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.SelectedIdx)
	assert.Equal(t, "clean", m.ActiveTaskName)
	assert.False(t, m.FollowMode)

	send(t, m, tui.MsgTaskStart{SpanID: "s2", Name: "styles"})
	assert.Equal(t, "clean", m.ActiveTaskName, "manual selection is kept")

	send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, m.SelectedIdx)

	send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, m.FollowMode)
	assert.Equal(t, "scripts", m.ActiveTaskName)
}

func TestModel_Quit(t *testing.T) {
	m := newModel(t, "scripts")

	cmd := send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_View(t *testing.T) {
	uninitialized := tui.NewModel()
	assert.Equal(t, "Initializing...", uninitialized.View())

	m := newModel(t, "clean", "scripts", "styles", "lint")
	send(t, m, tui.MsgTaskStart{SpanID: "s1", Name: "clean"})
	send(t, m, tui.MsgTaskComplete{SpanID: "s1"})
	send(t, m, tui.MsgTaskStart{SpanID: "s2", Name: "scripts"})
	send(t, m, tui.MsgTaskStart{SpanID: "s3", ParentID: "s2", Name: "minify"})
	send(t, m, tui.MsgTaskStart{SpanID: "s4", Name: "styles"})
	send(t, m, tui.MsgTaskComplete{SpanID: "s4", Err: errors.New("boom")})

	out := m.View()
	for _, want := range []string{"BUILD", "clean", "scripts", "styles", "lint", "minify", "✓", "●", "✗", "○"} {
		assert.Contains(t, out, want)
	}
}
