// Package tui renders build progress as an interactive terminal view: a task
// list on the left and the output of the selected task on the right.
package tui

import (
	"bytes"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	taskListWidthRatio = 0.3
	logPaneBorderWidth = 4
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// StatusPending indicates the task is waiting to start.
	StatusPending TaskStatus = "Pending"
	// StatusRunning indicates the task is currently executing.
	StatusRunning TaskStatus = "Running"
	// StatusDone indicates the task completed successfully.
	StatusDone TaskStatus = "Done"
	// StatusError indicates the task failed.
	StatusError TaskStatus = "Error"
)

// TaskNode is a single task in the list. Output of its pipeline steps is
// collected in Logs as well.
type TaskNode struct {
	Name     string
	Status   TaskStatus
	Step     string
	Logs     bytes.Buffer
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Model is the TUI state.
type Model struct {
	Command        string
	Tasks          []*TaskNode
	TaskMap        map[string]*TaskNode
	SpanMap        map[string]*TaskNode
	StepSpans      map[string]string
	Viewport       viewport.Model
	ActiveTaskName string
	SelectedIdx    int
	ListHeight     int
	FollowMode     bool
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
//
//nolint:cyclop // one case per message type
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		listWidth := int(float64(msg.Width) * taskListWidthRatio)
		m.Viewport.Width = msg.Width - listWidth - logPaneBorderWidth
		m.Viewport.Height = msg.Height - lipgloss.Height(titleStyle.Render("LOGS"))
		m.ListHeight = msg.Height - lipgloss.Height(titleStyle.Render("TASKS")+"\n\n")
		m.refreshViewport()

	case MsgPlan:
		m.reset(msg)

	case MsgTaskStart:
		m.start(msg)

	case MsgTaskLog:
		if node, ok := m.SpanMap[msg.SpanID]; ok {
			node.Logs.Write(msg.Data)
			if node.Name == m.ActiveTaskName {
				m.refreshViewport()
			}
		}

	case MsgTaskComplete:
		m.complete(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "k", "up":
		if m.SelectedIdx > 0 {
			m.SelectedIdx--
			m.FollowMode = false
			m.selectActive()
		}
	case "j", "down":
		if m.SelectedIdx < len(m.Tasks)-1 {
			m.SelectedIdx++
			m.FollowMode = false
			m.selectActive()
		}
	case "esc":
		m.FollowMode = true
		for i, t := range m.Tasks {
			if t.Status == StatusRunning {
				m.SelectedIdx = i
				break
			}
		}
		m.selectActive()
	default:
		var cmd tea.Cmd
		m.Viewport, cmd = m.Viewport.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) reset(msg MsgPlan) {
	m.Command = msg.Command
	m.Tasks = make([]*TaskNode, len(msg.Tasks))
	m.TaskMap = make(map[string]*TaskNode, len(msg.Tasks))
	m.SpanMap = make(map[string]*TaskNode)
	m.StepSpans = make(map[string]string)
	for i, name := range msg.Tasks {
		m.Tasks[i] = &TaskNode{Name: name, Status: StatusPending}
		m.TaskMap[name] = m.Tasks[i]
	}
	m.SelectedIdx = 0
	m.ActiveTaskName = ""
	m.FollowMode = true
	m.refreshViewport()
}

func (m *Model) start(msg MsgTaskStart) {
	if m.SpanMap == nil {
		m.reset(MsgPlan{})
	}

	// Steps report into the task they belong to.
	if parent, ok := m.SpanMap[msg.ParentID]; ok && msg.ParentID != "" {
		parent.Step = msg.Name
		m.SpanMap[msg.SpanID] = parent
		m.StepSpans[msg.SpanID] = msg.Name
		return
	}

	node, ok := m.TaskMap[msg.Name]
	if !ok {
		node = &TaskNode{Name: msg.Name}
		m.Tasks = append(m.Tasks, node)
		m.TaskMap[msg.Name] = node
	}
	node.Status = StatusRunning
	node.Started = msg.StartTime
	m.SpanMap[msg.SpanID] = node

	if m.FollowMode {
		for i, t := range m.Tasks {
			if t == node {
				m.SelectedIdx = i
				break
			}
		}
		m.selectActive()
	}
}

func (m *Model) complete(msg MsgTaskComplete) {
	node, ok := m.SpanMap[msg.SpanID]
	if !ok {
		return
	}
	if step, isStep := m.StepSpans[msg.SpanID]; isStep {
		if node.Step == step {
			node.Step = ""
		}
		delete(m.StepSpans, msg.SpanID)
		return
	}

	node.Duration = msg.EndTime.Sub(node.Started)
	node.Err = msg.Err
	if msg.Err != nil {
		node.Status = StatusError
		if node.Name == m.ActiveTaskName {
			m.refreshViewport()
		}
		return
	}
	node.Status = StatusDone
}

func (m *Model) selectActive() {
	if m.SelectedIdx < 0 || m.SelectedIdx >= len(m.Tasks) {
		return
	}
	m.ActiveTaskName = m.Tasks[m.SelectedIdx].Name
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	node, ok := m.TaskMap[m.ActiveTaskName]
	if !ok {
		m.Viewport.SetContent("")
		return
	}
	content := node.Logs.String()
	if node.Err != nil {
		content += "\n" + taskErrorStyle.Render(node.Err.Error())
	}
	m.Viewport.SetContent(content)
	if m.FollowMode {
		m.Viewport.GotoBottom()
	}
}
